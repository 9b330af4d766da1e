package ngram

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"
)

// Format is a persisted index layout.
type Format string

const (
	FormatJSON  Format = "json"  // structured gram -> timestamps, loadable
	FormatFlat  Format = "flat"  // quoted grams only, write-only
	FormatLines Format = "lines" // "gram: [list]" text, loadable, lenient
)

func (f Format) Ext() string {
	switch f {
	case FormatJSON:
		return ".json"
	case FormatFlat:
		return ".txt"
	case FormatLines:
		return ".ngram"
	default:
		return ""
	}
}

func (f Format) encode(w io.Writer, idx *PhraseIndex) error {
	switch f {
	case FormatJSON:
		return EncodeJSON(w, idx)
	case FormatFlat:
		return EncodeFlat(w, idx)
	case FormatLines:
		return EncodeLines(w, idx)
	default:
		return fmt.Errorf("unknown index format %q", f)
	}
}

// DefaultFormats are the detailed and plain outputs written per source.
var DefaultFormats = []Format{FormatJSON, FormatFlat}

// Save writes idx under dir as <id><ext> for each format, creating dir. It
// returns the written paths.
func Save(dir, id string, idx *PhraseIndex, formats ...Format) ([]string, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("save index: empty source id")
	}
	if len(formats) == 0 {
		formats = DefaultFormats
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create index dir: %w", err)
	}

	paths := make([]string, 0, len(formats))
	for _, format := range formats {
		path := filepath.Join(dir, id+format.Ext())
		if err := writeFile(path, idx, format); err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// MetaExt is the extension of the metadata file written next to an index.
const MetaExt = ".meta"

// Meta records how an index was built.
type Meta struct {
	FoldCase bool   `toml:"fold_case"`
	Subtitle string `toml:"subtitle"`
	Grams    int    `toml:"grams"`
}

// SaveSource saves src.Index like Save and, when src.Meta is set, writes it to
// <id>.meta.
func SaveSource(dir string, src Source, formats ...Format) ([]string, error) {
	paths, err := Save(dir, src.ID, src.Index, formats...)
	if err != nil || src.Meta == nil {
		return paths, err
	}
	metaPath := filepath.Join(dir, src.ID+MetaExt)
	if err = WriteMeta(metaPath, *src.Meta); err != nil {
		return paths, err
	}
	return append(paths, metaPath), nil
}

func WriteMeta(path string, meta Meta) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err = toml.NewEncoder(file).Encode(meta); err != nil {
		file.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return file.Close()
}

// ReadMeta reads a metadata file. A missing file yields nil without error.
func ReadMeta(path string) (*Meta, error) {
	var meta Meta
	if _, err := toml.DecodeFile(path, &meta); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return &meta, nil
}

func writeFile(path string, idx *PhraseIndex, format Format) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err = format.encode(file, idx); err != nil {
		file.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return file.Close()
}

// LoadFile reads a .json or .ngram index.
func LoadFile(path string) (*PhraseIndex, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case FormatJSON.Ext():
		return DecodeJSON(file)
	case FormatLines.Ext():
		return DecodeLines(file)
	default:
		return nil, fmt.Errorf("load %s: unsupported index extension", path)
	}
}

// LoadReport is the partial-success outcome of LoadDir.
type LoadReport struct {
	Loaded []string
	Failed map[string]error
}

// LoadDir loads every .json and .ngram index in dir, ordered by source id.
// When both exist for one id the JSON form wins. A file that fails to load is
// reported and skipped. An unreadable .meta file leaves the source without
// metadata.
func LoadDir(dir string) (Catalog, LoadReport, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, LoadReport{}, fmt.Errorf("read index dir: %w", err)
	}

	chosen := make(map[string]string)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		ext := strings.ToLower(filepath.Ext(name))
		if ext != FormatJSON.Ext() && ext != FormatLines.Ext() {
			continue
		}
		id := strings.TrimSuffix(name, filepath.Ext(name))
		if existing, ok := chosen[id]; ok && strings.EqualFold(filepath.Ext(existing), FormatJSON.Ext()) {
			continue
		}
		chosen[id] = filepath.Join(dir, name)
	}

	ids := make([]string, 0, len(chosen))
	for id := range chosen {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	report := LoadReport{Failed: make(map[string]error)}
	catalog := make(Catalog, 0, len(ids))
	for _, id := range ids {
		idx, err := LoadFile(chosen[id])
		if err != nil {
			report.Failed[id] = err
			continue
		}
		meta, _ := ReadMeta(filepath.Join(dir, id+MetaExt))
		catalog = append(catalog, Source{ID: id, Index: idx, Meta: meta})
		report.Loaded = append(report.Loaded, id)
	}
	return catalog, report, nil
}
