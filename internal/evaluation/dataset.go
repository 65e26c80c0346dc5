package evaluation

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"runtime"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// Label is the ground truth attached to a candidate file
type Label string

const (
	LabelPlagiarized    Label = "plagiarized"
	LabelNonPlagiarized Label = "non-plagiarized"
)

const (
	originalDir      = "original"
	DefaultExtension = ".java"
)

// candidate folders, in the order they are scanned
var labelDirs = []Label{LabelPlagiarized, LabelNonPlagiarized}

// Candidate is one labeled file compared against its case's original
type Candidate struct {
	Path    string
	Label   Label
	Content string
}

// Case is one original file and the candidates derived (or not) from it
type Case struct {
	Name         string
	OriginalPath string
	Original     string
	Candidates   []Candidate
}

// Dataset is a loaded case collection
type Dataset struct {
	Cases   []Case
	Skipped []string // case names whose original folder was unusable
}

// PairCount returns the number of (original, candidate) comparisons
func (d *Dataset) PairCount() int {
	n := 0
	for _, c := range d.Cases {
		n += len(c.Candidates)
	}
	return n
}

var errNoOriginal = errors.New("original folder must contain exactly one source file")

// LoadDataset reads the case layout rooted at fsys:
//
//	<case>/original/<one file>.java
//	<case>/plagiarized/**/*.java
//	<case>/non-plagiarized/**/*.java
func LoadDataset(ctx context.Context, fsys fs.FS, ext string) (*Dataset, error) {
	if ext == "" {
		ext = DefaultExtension
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("failed to read dataset root: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	cases := make([]*Case, len(names))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())

	for i, name := range names {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			c, err := loadCase(fsys, name, ext)
			if errors.Is(err, errNoOriginal) {
				log.Error().Err(err).Str("case", name).Msg("Skipping case")
				return nil
			}
			if err != nil {
				return fmt.Errorf("case %s: %w", name, err)
			}
			cases[i] = c
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	ds := &Dataset{Cases: make([]Case, 0, len(cases))}
	for i, c := range cases {
		if c == nil {
			ds.Skipped = append(ds.Skipped, names[i])
			continue
		}
		ds.Cases = append(ds.Cases, *c)
	}

	log.Debug().
		Int("cases", len(ds.Cases)).
		Int("skipped", len(ds.Skipped)).
		Int("pairs", ds.PairCount()).
		Msg("Dataset loaded")

	return ds, nil
}

func loadCase(fsys fs.FS, name, ext string) (*Case, error) {
	origDir := path.Join(name, originalDir)
	entries, err := fs.ReadDir(fsys, origDir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s is missing", errNoOriginal, origDir)
		}
		return nil, err
	}

	var sources []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ext) {
			sources = append(sources, entry.Name())
		}
	}
	if len(sources) != 1 {
		return nil, fmt.Errorf("%w: found %d in %s", errNoOriginal, len(sources), origDir)
	}

	origPath := path.Join(origDir, sources[0])
	original, err := fs.ReadFile(fsys, origPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read original: %w", err)
	}

	c := &Case{
		Name:         name,
		OriginalPath: origPath,
		Original:     string(original),
	}

	for _, label := range labelDirs {
		root := path.Join(name, string(label))
		candidates, err := loadCandidates(fsys, root, label, ext)
		if err != nil {
			return nil, err
		}
		c.Candidates = append(c.Candidates, candidates...)
	}

	return c, nil
}

// loadCandidates walks root recursively; a missing folder yields no candidates
func loadCandidates(fsys fs.FS, root string, label Label, ext string) ([]Candidate, error) {
	info, err := fs.Stat(fsys, root)
	if errors.Is(err, fs.ErrNotExist) || (err == nil && !info.IsDir()) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var out []Candidate
	err = fs.WalkDir(fsys, root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), ext) {
			return nil
		}
		content, err := fs.ReadFile(fsys, p)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", p, err)
		}
		out = append(out, Candidate{Path: p, Label: label, Content: string(content)})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
