package nativepkg

import "errors"

var (
	// ErrMissingRequiredField is returned when a backend-mandatory field is empty after resolution.
	ErrMissingRequiredField = errors.New("missing required field")
	// ErrUnsupportedArchitecture is returned when the host architecture has no mapping for a backend.
	ErrUnsupportedArchitecture = errors.New("unsupported architecture")
	// ErrSurvey is returned when the AppDir tree cannot be read completely.
	ErrSurvey = errors.New("survey failed")
	// ErrTemplateRender is returned when a manifest template cannot be rendered.
	ErrTemplateRender = errors.New("template render failed")
	// ErrBackendInvocation is returned when the packaging tool exits with a non-zero status.
	ErrBackendInvocation = errors.New("backend invocation failed")
	// ErrBackendSilentFailure is returned when the packaging tool succeeds without producing an artifact.
	ErrBackendSilentFailure = errors.New("backend reported success but produced no artifact")
	// ErrOutputCollision is returned when the output file exists and overwriting was not requested.
	ErrOutputCollision = errors.New("output file already exists")
	// ErrInvalidDesktopEntry is returned when a desktop entry cannot be integrated into the system.
	ErrInvalidDesktopEntry = errors.New("invalid desktop entry")
	// ErrStagingInUse is returned when another live process owns the staging directory.
	ErrStagingInUse = errors.New("staging directory is in use")
	// ErrSigning is returned when the signing tool fails.
	ErrSigning = errors.New("signing failed")
	// ErrUnknownBackend is returned for backend names other than deb and rpm.
	ErrUnknownBackend = errors.New("unknown backend")
)
