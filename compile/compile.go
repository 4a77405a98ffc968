package compile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/botarena/backend/auth"
	"github.com/botarena/backend/conf"
	"github.com/botarena/backend/registry"
	"github.com/botarena/backend/sandbox"
	"github.com/botarena/backend/srvcerror"
)

// srcFilenames maps a supported language to its expected source
// filename. Languages missing here never reach the compiler.
var srcFilenames = map[string]string{
	"cpp": "main.cpp",
	"py":  "main.py",
}

// compiledLangs are the languages that actually need a compiler run;
// the rest are marked "No Need" at submission time.
var compiledLangs = []string{"cpp"}

// Storage is the slice of object storage the pipeline needs.
type Storage interface {
	DownloadToFile(ctx context.Context, key string, localPath string) error
	UploadFile(ctx context.Context, localPath string, key string) (string, error)
}

// Runtime is the container engine surface the pipeline needs.
type Runtime interface {
	ListNames(ctx context.Context) ([]string, error)
	Run(ctx context.Context, spec sandbox.Spec) (string, error)
	Stop(ctx context.Context, id string) error
}

type Service struct {
	reg       registry.Registry
	storage   Storage
	runtime   Runtime
	images    *conf.ImageMap
	jwtKey    []byte
	finishURL string
	baseDir   string
	timeout   time.Duration
	logger    *slog.Logger
}

func NewService(reg registry.Registry, storage Storage, runtime Runtime, images *conf.ImageMap, jwtKey []byte, finishURL string, baseDir string, timeout time.Duration, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}
	return &Service{
		reg:       reg,
		storage:   storage,
		runtime:   runtime,
		images:    images,
		jwtKey:    jwtKey,
		finishURL: finishURL,
		baseDir:   baseDir,
		timeout:   timeout,
		logger:    log,
	}
}

// CompilerName derives the deterministic container name that doubles
// as the duplicate-compile guard.
func CompilerName(contestName, codeID string) string {
	return fmt.Sprintf("%s_compiler_%s", contestName, codeID)
}

// StagingDir is where one code's source lives while its compiler runs.
func StagingDir(base, contestName, codeID string) string {
	return filepath.Join(base, contestName, "compile", codeID)
}

func SourceKey(codeID, filename string) string {
	return fmt.Sprintf("codes/%s/src/%s", codeID, filename)
}

func BinaryKey(codeID string) string {
	return fmt.Sprintf("codes/%s/bin/main", codeID)
}

func LogKey(codeID string) string {
	return fmt.Sprintf("codes/%s/compile.log", codeID)
}

// StartCompile stages the code's source into a sandbox directory and
// launches a compiler container that will report back through
// FinishCompile with the token minted here.
func (s *Service) StartCompile(ctx context.Context, codeID string, requester string) error {
	code, err := s.reg.GetCode(ctx, codeID)
	if errors.Is(err, registry.ErrRowNotFound) {
		return ErrCodeNotFound()
	}
	if err != nil {
		return srvcerror.ErrInternalSE().SetDebug(err)
	}

	switch code.Status {
	case registry.CompileSuccess:
		return ErrAlreadyCompiled()
	case registry.CompileCompiling:
		return ErrCompileInFlight()
	}

	team, err := s.reg.GetTeam(ctx, code.TeamID)
	if errors.Is(err, registry.ErrRowNotFound) {
		return srvcerror.ErrNotFound("team not found")
	}
	if err != nil {
		return srvcerror.ErrInternalSE().SetDebug(err)
	}
	contest, err := s.reg.GetContest(ctx, code.ContestID)
	if errors.Is(err, registry.ErrRowNotFound) {
		return srvcerror.ErrNotFound("contest not found")
	}
	if err != nil {
		return srvcerror.ErrInternalSE().SetDebug(err)
	}
	if !slices.Contains(team.Members, requester) && !slices.Contains(contest.Managers, requester) {
		return ErrNotTeamMemberOrManager()
	}

	filename, ok := srcFilenames[code.Language]
	if !ok {
		return ErrUnsupportedLanguage()
	}
	if !slices.Contains(compiledLangs, code.Language) {
		return ErrNotCompiledLanguage()
	}

	name := CompilerName(contest.Name, codeID)
	names, err := s.runtime.ListNames(ctx)
	if err != nil {
		return srvcerror.ErrUpstream("container runtime unavailable").SetDebug(err)
	}
	if slices.Contains(names, name) {
		return ErrCompileInFlight()
	}

	staging := StagingDir(s.baseDir, contest.Name, codeID)
	sourcePath := filepath.Join(staging, filename)
	if err := s.storage.DownloadToFile(ctx, SourceKey(codeID, filename), sourcePath); err != nil {
		return ErrSourceUnavailable().SetDebug(err)
	}

	token, err := auth.GenerateCompileToken(
		codeID, code.TeamID, contest.Name, sourcePath, s.timeout, s.jwtKey)
	if err != nil {
		return srvcerror.ErrInternalSE().SetDebug(err)
	}

	id, err := s.runtime.Run(ctx, sandbox.Spec{
		Image: s.images.For(contest.Name).Compiler,
		Name:  name,
		Env: []string{
			"FINISH_URL=" + s.finishURL,
			"TOKEN=" + token,
			"SOURCE=/code/" + filename,
		},
		Binds:      []string{staging + ":/code"},
		MemLimitMB: contest.MemLimitMB,
		AutoRemove: true,
	})
	if err != nil {
		return ErrCompilerLaunchFailed().SetDebug(err)
	}
	s.armForceStop(id)

	if err := s.reg.SetCodeStatus(ctx, codeID, registry.CompileCompiling); err != nil {
		return srvcerror.ErrInternalSE().SetDebug(err)
	}
	s.logger.Info("started compile", "code_id", codeID, "container", name)
	return nil
}

// FinishCompile is invoked by the compiler sandbox itself. The token
// scopes it to exactly one code; a token minted for another code
// cannot touch this one.
func (s *Service) FinishCompile(ctx context.Context, tokenStr string, reportedStatus string) error {
	claims, err := auth.ValidateCompileToken(tokenStr, s.jwtKey)
	if err != nil {
		return srvcerror.ErrUnauthorized("invalid compile token").SetDebug(err)
	}

	var status registry.CompileStatus
	switch reportedStatus {
	case string(registry.CompileSuccess):
		status = registry.CompileSuccess
	case string(registry.CompileFailed):
		status = registry.CompileFailed
	default:
		return ErrBadCompileStatus()
	}

	staging := filepath.Dir(claims.SourcePath)

	// A Success status with no stored binary would be unrecoverable:
	// StartCompile refuses Success codes, and match staging expects the
	// artifact to exist. Keep the code Compiling and the staging dir
	// around so the callback can be retried while the token lives.
	if status == registry.CompileSuccess {
		binPath := filepath.Join(staging, "main")
		if _, err := s.storage.UploadFile(ctx, binPath, BinaryKey(claims.CodeID)); err != nil {
			return ErrBinaryUploadFailed().SetDebug(err)
		}
	}
	logPath := filepath.Join(staging, "compile.log")
	if _, err := s.storage.UploadFile(ctx, logPath, LogKey(claims.CodeID)); err != nil {
		s.logger.Warn("failed to upload compile log", "code_id", claims.CodeID, "error", err)
	}

	if err := s.reg.SetCodeStatus(ctx, claims.CodeID, status); err != nil {
		if errors.Is(err, registry.ErrRowNotFound) {
			return ErrCodeNotFound()
		}
		return srvcerror.ErrInternalSE().SetDebug(err)
	}

	if err := os.RemoveAll(staging); err != nil {
		s.logger.Warn("failed to remove staging dir", "code_id", claims.CodeID, "error", err)
	}
	s.logger.Info("finished compile", "code_id", claims.CodeID, "status", string(status))
	return nil
}

func (s *Service) armForceStop(id string) {
	time.AfterFunc(s.timeout, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		if err := s.runtime.Stop(ctx, id); err != nil {
			s.logger.Debug("compiler force stop skipped", "container", id, "error", err)
		}
	})
}
