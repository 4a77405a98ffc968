package compile

import (
	"net/http"

	"github.com/botarena/backend/srvcerror"
)

const (
	errCodeCodeNotFound      = "code_not_found"
	errCodeAlreadyCompiled   = "already_compiled"
	errCodeCompileInFlight   = "compile_in_flight"
	errCodeNotCompiledLang   = "not_a_compiled_language"
	errCodeBadCompileStatus  = "bad_compile_status"
	errCodeNotTeamMember     = "not_team_member_or_manager"
	errCodeUnsupportedLang   = "unsupported_language"
	errCodeCompilerLaunch    = "compiler_launch_failed"
	errCodeSourceUnavailable = "source_unavailable"
	errCodeBinaryUpload      = "binary_upload_failed"
)

func ErrCodeNotFound() *srvcerror.Error {
	return srvcerror.New(errCodeCodeNotFound, "code not found").
		SetHttpStatusCode(http.StatusNotFound)
}

func ErrAlreadyCompiled() *srvcerror.Error {
	return srvcerror.New(errCodeAlreadyCompiled, "code is already compiled").
		SetHttpStatusCode(http.StatusConflict)
}

func ErrCompileInFlight() *srvcerror.Error {
	return srvcerror.New(errCodeCompileInFlight, "a compile for this code is already running").
		SetHttpStatusCode(http.StatusConflict)
}

func ErrNotCompiledLanguage() *srvcerror.Error {
	return srvcerror.New(errCodeNotCompiledLang, "language does not require compilation").
		SetHttpStatusCode(http.StatusUnprocessableEntity)
}

func ErrUnsupportedLanguage() *srvcerror.Error {
	return srvcerror.New(errCodeUnsupportedLang, "language is not supported").
		SetHttpStatusCode(http.StatusUnprocessableEntity)
}

func ErrBadCompileStatus() *srvcerror.Error {
	return srvcerror.New(errCodeBadCompileStatus, "reported status must be Success or Failed").
		SetHttpStatusCode(http.StatusUnprocessableEntity)
}

func ErrNotTeamMemberOrManager() *srvcerror.Error {
	return srvcerror.New(errCodeNotTeamMember, "requester is not a team member or contest manager").
		SetHttpStatusCode(http.StatusForbidden)
}

func ErrCompilerLaunchFailed() *srvcerror.Error {
	return srvcerror.New(errCodeCompilerLaunch, "failed to launch compiler sandbox").
		SetHttpStatusCode(http.StatusBadGateway)
}

func ErrSourceUnavailable() *srvcerror.Error {
	return srvcerror.New(errCodeSourceUnavailable, "failed to stage source from storage").
		SetHttpStatusCode(http.StatusBadGateway)
}

func ErrBinaryUploadFailed() *srvcerror.Error {
	return srvcerror.New(errCodeBinaryUpload, "failed to store compiled binary").
		SetHttpStatusCode(http.StatusBadGateway)
}
