// Package paramset loads named generator parameter sets. Built-in sets are
// embedded in the binary; an optional directory overlays them file by file.
package paramset

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"channelflow/internal/flowgen"
)

// DefaultName is the set every other set is merged over.
const DefaultName = "default"

var ErrUnknownSet = errors.New("unknown parameter set")

//go:embed sets/*.yaml
var builtinSets embed.FS

// Loader merges embedded default -> dir/default.yaml -> embedded <name> ->
// dir/<name>.yaml. A blank dir disables the overlay.
type Loader struct {
	dir string

	mu    sync.RWMutex
	cache map[string]RawParamSet
}

func NewLoader(dir string) *Loader {
	return &Loader{
		dir:   strings.TrimSpace(dir),
		cache: make(map[string]RawParamSet),
	}
}

// Load returns the validated parameters of the named set. A blank name
// selects the default set.
func (l *Loader) Load(name string) (flowgen.Params, error) {
	return l.LoadWith(name, RawParamSet{})
}

// LoadWith applies overrides on top of the named set before resolving.
func (l *Loader) LoadWith(name string, overrides RawParamSet) (flowgen.Params, error) {
	raw, err := l.LoadRaw(name)
	if err != nil {
		return flowgen.Params{}, err
	}
	params, err := mergeRaw(raw, overrides).Params()
	if err != nil {
		return flowgen.Params{}, fmt.Errorf("parameter set %s: %w", setName(name), err)
	}
	if err := params.Validate(); err != nil {
		return flowgen.Params{}, fmt.Errorf("parameter set %s: %w", setName(name), err)
	}
	return params, nil
}

// LoadRaw returns the merged, unresolved set.
func (l *Loader) LoadRaw(name string) (RawParamSet, error) {
	name = setName(name)
	if err := checkName(name); err != nil {
		return RawParamSet{}, err
	}

	l.mu.RLock()
	if cached, ok := l.cache[name]; ok {
		l.mu.RUnlock()
		return cached, nil
	}
	l.mu.RUnlock()

	merged, found, err := l.readLayer(DefaultName)
	if err != nil {
		return RawParamSet{}, err
	}
	if !found {
		return RawParamSet{}, fmt.Errorf("%w: %s", ErrUnknownSet, DefaultName)
	}
	if name != DefaultName {
		named, ok, err := l.readLayer(name)
		if err != nil {
			return RawParamSet{}, err
		}
		if !ok {
			return RawParamSet{}, fmt.Errorf("%w: %s", ErrUnknownSet, name)
		}
		merged = mergeRaw(merged, named)
	}

	l.mu.Lock()
	l.cache[name] = merged
	l.mu.Unlock()
	return merged, nil
}

// readLayer merges the embedded and on-disk files of one name.
func (l *Loader) readLayer(name string) (RawParamSet, bool, error) {
	builtin, builtinFound, err := readBuiltin(name)
	if err != nil {
		return RawParamSet{}, false, err
	}
	if l.dir == "" {
		return builtin, builtinFound, nil
	}
	overlay, overlayFound, err := readYAML(filepath.Join(l.dir, name+".yaml"))
	if err != nil {
		return RawParamSet{}, false, err
	}
	return mergeRaw(builtin, overlay), builtinFound || overlayFound, nil
}

// Names lists every built-in and on-disk set, sorted.
func (l *Loader) Names() ([]string, error) {
	seen := map[string]struct{}{}
	entries, err := fs.ReadDir(builtinSets, "sets")
	if err != nil {
		return nil, err
	}
	for _, entry := range entries {
		if name, ok := yamlSetName(entry); ok {
			seen[name] = struct{}{}
		}
	}
	if l.dir != "" {
		entries, err := os.ReadDir(l.dir)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
		for _, entry := range entries {
			if name, ok := yamlSetName(entry); ok {
				seen[name] = struct{}{}
			}
		}
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// Invalidate drops cached merges so edited overlay files are re-read.
func (l *Loader) Invalidate() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cache = make(map[string]RawParamSet)
}

func readBuiltin(name string) (RawParamSet, bool, error) {
	data, err := builtinSets.ReadFile("sets/" + name + ".yaml")
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return RawParamSet{}, false, nil
		}
		return RawParamSet{}, false, err
	}
	set, err := decode(data)
	if err != nil {
		return RawParamSet{}, false, fmt.Errorf("built-in parameter set %s: %w", name, err)
	}
	return set, true, nil
}

// readYAML loads one overlay file. A missing file is not an error.
func readYAML(path string) (RawParamSet, bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return RawParamSet{}, false, nil
		}
		return RawParamSet{}, false, err
	}
	set, err := decode(data)
	if err != nil {
		return RawParamSet{}, false, fmt.Errorf("%s: %w", path, err)
	}
	return set, true, nil
}

func decode(data []byte) (RawParamSet, error) {
	var set RawParamSet
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&set); err != nil && !errors.Is(err, io.EOF) {
		return RawParamSet{}, err
	}
	return set, nil
}

func setName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return DefaultName
	}
	return name
}

func checkName(name string) error {
	if strings.ContainsAny(name, `/\`) || strings.HasPrefix(name, ".") {
		return fmt.Errorf("invalid parameter set name %q", name)
	}
	return nil
}

func yamlSetName(entry fs.DirEntry) (string, bool) {
	if entry.IsDir() || filepath.Ext(entry.Name()) != ".yaml" {
		return "", false
	}
	return strings.TrimSuffix(entry.Name(), ".yaml"), true
}
