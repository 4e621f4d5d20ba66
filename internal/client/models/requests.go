package models

// Attachment is one binary file to upload.
type Attachment struct {
	Name        string
	ContentType string
	Data        []byte `validate:"min=1"`
}

// ReportIssueRequest is what a citizen submits. Images are uploaded before
// the issue is created; the request itself is never modified.
type ReportIssueRequest struct {
	Title       string       `validate:"required"`
	Description string       `validate:"required"`
	Location    string       `validate:"required"`
	Category    string       `validate:"required"`
	Priority    Priority     `validate:"required,oneof=low medium high urgent"`
	Images      []Attachment `validate:"min=1,max=5,dive"`
	IsAnonymous bool
	ReportedBy  string `validate:"required_without=IsAnonymous"`
}

// CreateIssueBody is the POST /issues payload.
type CreateIssueBody struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Location    string   `json:"location"`
	Category    string   `json:"category"`
	Priority    Priority `json:"priority"`
	Images      []string `json:"images"`
	IsAnonymous bool     `json:"isAnonymous"`
	ReportedBy  string   `json:"reportedBy"`
}

// UpdateIssueRequest is a partial update sent with PATCH /issues/{id}.
type UpdateIssueRequest struct {
	IssueID       string
	Status        Status
	AfterImage    *Attachment
	Cost          string
	AssignedTo    string
	EstimatedTime string
}

// UpdateIssueBody is the PATCH /issues/{id} payload.
type UpdateIssueBody struct {
	IssueID       string `json:"issueId"`
	Status        Status `json:"status,omitempty"`
	AfterImage    string `json:"afterImage,omitempty"`
	Cost          string `json:"cost,omitempty"`
	AssignedTo    string `json:"assignedTo,omitempty"`
	EstimatedTime string `json:"estimatedTime,omitempty"`
}

type AssignBody struct {
	AssignedTo    string `json:"assignedTo"`
	EstimatedTime string `json:"estimatedTime"`
}

type ResolveBody struct {
	AfterImage string `json:"afterImage"`
	Cost       string `json:"cost,omitempty"`
}

type LoginBody struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     Role   `json:"role"`
}

type SignupBody struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Phone    string `json:"phone"`
	Role     Role   `json:"role"`
}

// UploadResult is the body returned by the /upload/* endpoints.
type UploadResult struct {
	URL string `json:"url"`
}
