// Package client contains the transport side of the civicsync client.
//
// # Overview
//
// The package provides:
//  1. HTTPClient, a JSON-over-HTTP client for the issue backend that
//     attaches the bearer credential and maps HTTP failures to the
//     sentinel errors in internal/common.
//  2. File uploads: HTTPClient.UploadFile (multipart to the backend) and
//     the object-storage uploaders S3Uploader and MinioUploader, all
//     behind the Uploader interface.
//  3. Dispatcher, the mock-first routing policy: the in-process mock
//     backend answers first and the network is used only for routes the
//     mock does not model.
//  4. Subscriber, a reconnecting websocket stream of issue updates.
//  5. Local persistence bootstrap (InitDatabase, RunMigrations) wiring an
//     SQLite database and applying embedded goose migrations.
//
// # Error Handling
//
// Failures match the sentinels in internal/common with errors.Is:
// ErrNetwork, ErrUnavailable, ErrAuth, ErrUpload, ErrDecode and
// ErrUnimplementedRoute. HTTP status failures are *common.StatusError.
//
// # Concurrency & Contexts
//
// All types are safe for concurrent use. Every operation accepts a
// context.Context and honours cancellation; HTTPClient additionally applies
// a per-request timeout.
package client
