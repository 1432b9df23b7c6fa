package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"
	"cuelang.org/go/cue/token"

	"github.com/roach88/waterfall/internal/compiler"
	"github.com/roach88/waterfall/internal/domain"
)

// LoadMode selects how LoadWaterfalls reacts to a waterfall that fails to compile.
type LoadMode int

const (
	LoadModeFailFast   LoadMode = iota // engine commands refuse to start on bad specs
	LoadModeCollectAll                 // validate reports every bad waterfall
)

// LoadResult holds the compiled waterfalls of a specs directory.
type LoadResult struct {
	Waterfalls []domain.Waterfall
	CUEValue   cue.Value
	FileCount  int
}

// LoadError is a specs loading failure, positioned when CUE knows where.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// LoadWaterfalls compiles every waterfall declared under the top-level
// "waterfall" field of the CUE package in dir.
//
// Directory and CUE build problems are reported alone with a nil result.
// Compile errors of single waterfalls are returned next to the waterfalls
// that did compile; LoadModeFailFast stops at the first of them.
func LoadWaterfalls(dir string, mode LoadMode) (*LoadResult, []error) {
	value, files, lerr := buildSpecs(dir)
	if lerr != nil {
		return nil, []error{lerr}
	}

	result := &LoadResult{CUEValue: value, FileCount: files, Waterfalls: []domain.Waterfall{}}
	var errs []error

	if decls := value.LookupPath(cue.ParsePath("waterfall")); decls.Exists() {
		iter, err := decls.Fields()
		if err != nil {
			return result, []error{&LoadError{Code: ErrCodeGeneric, Message: fmt.Sprintf("iterating waterfalls: %v", err)}}
		}
		for iter.Next() {
			w, err := compiler.CompileWaterfall(iter.Value())
			if err != nil {
				errs = append(errs, convertCompileError(err, "waterfall."+iter.Label()))
				if mode == LoadModeFailFast {
					return result, errs
				}
				continue
			}
			result.Waterfalls = append(result.Waterfalls, *w)
		}
	}

	if len(result.Waterfalls) == 0 && len(errs) == 0 {
		errs = append(errs, &LoadError{Code: ErrCodeGeneric, Message: "no waterfalls found in specs"})
	}
	return result, errs
}

// buildSpecs checks dir and builds its CUE package into a single value.
func buildSpecs(dir string) (cue.Value, int, *LoadError) {
	info, err := os.Stat(dir)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return cue.Value{}, 0, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("specs directory not found: %s", dir)}
	case err != nil:
		return cue.Value{}, 0, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("accessing specs directory: %v", err)}
	case !info.IsDir():
		return cue.Value{}, 0, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("not a directory: %s", dir)}
	}

	files, err := FindCUEFiles(dir)
	if err != nil {
		return cue.Value{}, 0, &LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("scanning %s: %v", dir, err)}
	}
	if len(files) == 0 {
		return cue.Value{}, 0, &LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no CUE files found in %s", dir)}
	}

	insts := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(insts) == 0 {
		return cue.Value{}, 0, &LoadError{Code: ErrCodeLoadFailed, Message: "no CUE instances loaded"}
	}
	if insts[0].Err != nil {
		return cue.Value{}, 0, &LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("loading CUE files: %v", insts[0].Err)}
	}

	value := cuecontext.New().BuildInstance(insts[0])
	if err := value.Err(); err != nil {
		return cue.Value{}, 0, &LoadError{Code: ErrCodeBuildFailed, Message: fmt.Sprintf("building CUE value: %v", err)}
	}
	return value, len(files), nil
}

// FindCUEFiles returns every .cue file below dir.
func FindCUEFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(path, ".cue") {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

// convertCompileError prefixes a compiler error with the waterfall path and
// keeps its CUE position.
func convertCompileError(err error, context string) *LoadError {
	var compileErr *compiler.CompileError
	if errors.As(err, &compileErr) {
		return &LoadError{
			Code:    MapFieldToErrorCode(compileErr.Field),
			Message: fmt.Sprintf("%s: %s: %s", context, compileErr.Field, compileErr.Message),
			Pos:     compileErr.Pos,
		}
	}
	return &LoadError{
		Code:    ErrCodeGeneric,
		Message: fmt.Sprintf("%s: %v", context, err),
	}
}

// Loader error codes. E0xx concern the specs directory, E1xx a single
// waterfall definition.
const (
	ErrCodeGeneric     = "E001"
	ErrCodeScanError   = "E002"
	ErrCodeNoFiles     = "E003"
	ErrCodeLoadFailed  = "E004"
	ErrCodeNotFound    = "E005"
	ErrCodeBuildFailed = "E006"

	ErrCodeSchema   = "E101" // CUE value does not fit the waterfall schema
	ErrCodeDuration = "E102" // Response window is not a duration
	ErrCodeStatus   = "E103" // Unknown waterfall status
	ErrCodeLabel    = "E104" // Waterfall declared without a label
)

// MapFieldToErrorCode maps a compiler error field to an error code.
func MapFieldToErrorCode(field string) string {
	switch {
	case field == "cue":
		return ErrCodeSchema
	case field == "status":
		return ErrCodeStatus
	case field == "id":
		return ErrCodeLabel
	case strings.HasSuffix(field, ".response_window"):
		return ErrCodeDuration
	default:
		return ErrCodeGeneric
	}
}
