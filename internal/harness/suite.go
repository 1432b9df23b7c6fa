package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// SuiteOptions controls golden handling for RunSuite.
type SuiteOptions struct {
	// GoldenDir holds {scenario name}.golden traces. Empty skips comparison.
	GoldenDir string
	// Update rewrites golden files instead of comparing against them.
	Update bool
}

// ScenarioOutcome is the result of one scenario file.
type ScenarioOutcome struct {
	Scenario      string   `json:"scenario,omitempty"`
	Path          string   `json:"path"`
	Pass          bool     `json:"pass"`
	GoldenUpdated bool     `json:"golden_updated,omitempty"`
	Errors        []string `json:"errors,omitempty"`
}

// SuiteResult contains results from running a set of scenario files.
type SuiteResult struct {
	Total     int               `json:"total"`
	Passed    int               `json:"passed"`
	Failed    int               `json:"failed"`
	Scenarios []ScenarioOutcome `json:"scenarios"`
}

// Failures returns the outcomes that did not pass.
func (r *SuiteResult) Failures() []ScenarioOutcome {
	var out []ScenarioOutcome
	for _, s := range r.Scenarios {
		if !s.Pass {
			out = append(out, s)
		}
	}
	return out
}

// FindScenarios expands paths into scenario files. Directories contribute
// every .yaml and .yml file beneath them; files are taken as given.
// The result is sorted and free of duplicates.
func FindScenarios(paths []string) ([]string, error) {
	seen := make(map[string]bool)
	var out []string
	add := func(p string) {
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}

	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("scenario path %s: %w", p, err)
		}
		if !info.IsDir() {
			add(p)
			continue
		}
		err = filepath.WalkDir(p, func(path string, d os.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				return nil
			}
			switch filepath.Ext(path) {
			case ".yaml", ".yml":
				add(path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", p, err)
		}
	}

	sort.Strings(out)
	return out, nil
}

// RunSuite loads and runs every scenario file, collecting failures instead
// of stopping at the first one.
func RunSuite(paths []string, opts SuiteOptions) (*SuiteResult, error) {
	files, err := FindScenarios(paths)
	if err != nil {
		return nil, err
	}

	res := &SuiteResult{Scenarios: []ScenarioOutcome{}}
	for _, path := range files {
		out := runFile(path, opts)
		res.Total++
		if out.Pass {
			res.Passed++
		} else {
			res.Failed++
		}
		res.Scenarios = append(res.Scenarios, out)
	}
	return res, nil
}

func runFile(path string, opts SuiteOptions) ScenarioOutcome {
	out := ScenarioOutcome{Path: path}

	scenario, err := LoadScenario(path)
	if err != nil {
		out.Errors = []string{err.Error()}
		return out
	}
	out.Scenario = scenario.Name

	result, err := Run(scenario)
	if err != nil {
		out.Errors = []string{err.Error()}
		return out
	}
	out.Errors = append(out.Errors, result.Errors...)

	if opts.GoldenDir != "" {
		updated, err := checkGolden(opts, scenario.Name, FormatTrace(scenario.Name, result))
		if err != nil {
			out.Errors = append(out.Errors, err.Error())
		}
		out.GoldenUpdated = updated
	}

	out.Pass = len(out.Errors) == 0
	return out
}

// checkGolden compares trace with the scenario's golden file, or rewrites
// the file when opts.Update is set.
func checkGolden(opts SuiteOptions, name string, trace []byte) (bool, error) {
	path := filepath.Join(opts.GoldenDir, name+".golden")

	if opts.Update {
		if err := os.MkdirAll(opts.GoldenDir, 0o755); err != nil {
			return false, fmt.Errorf("create golden dir: %w", err)
		}
		if err := os.WriteFile(path, trace, 0o644); err != nil {
			return false, fmt.Errorf("write golden file: %w", err)
		}
		return true, nil
	}

	want, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return false, fmt.Errorf("golden file %s missing (run with --update to create it)", path)
	}
	if err != nil {
		return false, fmt.Errorf("read golden file: %w", err)
	}
	if !bytes.Equal(want, trace) {
		return false, fmt.Errorf("trace differs from golden file %s (run with --update to regenerate)", path)
	}
	return false, nil
}
