package app

import "errors"

var (
	ErrEmailAndPasswordRequired = errors.New("email and password are required")
	ErrEmailInvalid             = errors.New("email format is invalid")
	ErrEmailAlreadyExists       = errors.New("email already exists")
	ErrInvalidCredentials       = errors.New("invalid credentials")
	ErrEmailNotVerified         = errors.New("email is not verified")
	ErrUserNotFound             = errors.New("user not found")
	ErrRefreshTokenRequired     = errors.New("refresh token is required")

	ErrBookNotFound     = errors.New("book not found")
	ErrTitleRequired    = errors.New("title is required")
	ErrNegativePrice    = errors.New("price cannot be negative")
	ErrInvalidFileType  = errors.New("invalid file type, only CSV files are allowed")
	ErrFileTooLarge     = errors.New("file too large, maximum size is 10MB")
	ErrUploadNotFound   = errors.New("upload not found")
	ErrUploadForbidden  = errors.New("not authorized to view this upload")
	ErrFilenameRequired = errors.New("filename required")
)
