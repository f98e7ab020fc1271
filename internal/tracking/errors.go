package tracking

import "errors"

var (
	ErrUnknownKind         = errors.New("unknown activity kind")
	ErrMalformedSample     = errors.New("malformed location sample")
	ErrInvalidTransition   = errors.New("invalid session transition")
	ErrKindLocked          = errors.New("activity kind cannot change once tracking has begun")
	ErrNoGPSLock           = errors.New("no gps lock")
	ErrPermissionDenied    = errors.New("location permission denied")
	ErrAcquisitionTimeout  = errors.New("location acquisition timed out")
	ErrLocationUnavailable = errors.New("location provider unavailable")
	ErrSaveFailed          = errors.New("saving activity failed")
	ErrControllerClosed    = errors.New("session controller closed")
	ErrSessionNotFound     = errors.New("session not found")
	ErrSessionIdle         = errors.New("session idle timeout")
)
