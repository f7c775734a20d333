// Package enroll builds the reference vector set from a directory of
// student photos. The expected layout is people/<student name>/<photo>.jpg;
// every readable photo contributes one reference vector.
package enroll

import (
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/kozaktomas/smart-presence/internal/frame"
	"github.com/kozaktomas/smart-presence/internal/vision"
)

// Store is the persistence surface enrollment writes to.
type Store interface {
	SaveIdentity(ctx context.Context, name string, vectors [][]float32) error
	SyncStudents(ctx context.Context, names []string) error
}

// Result summarizes one enrollment run.
type Result struct {
	Students int
	Photos   int
	Skipped  int
}

// Enroller encodes student photos into reference vectors.
type Enroller struct {
	store    Store
	detector vision.Detector
	encoder  vision.Encoder
	log      zerolog.Logger

	// Progress is called after each processed photo, when set.
	Progress func()
}

// New creates an enroller.
func New(st Store, detector vision.Detector, encoder vision.Encoder, log zerolog.Logger) *Enroller {
	return &Enroller{
		store:    st,
		detector: detector,
		encoder:  encoder,
		log:      log.With().Str("component", "enroll").Logger(),
	}
}

// ListPhotos returns every enrollable photo under dir, grouped by the
// normalized student name taken from the directory name.
func ListPhotos(dir string) (map[string][]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read people directory %q: %w", dir, err)
	}

	out := make(map[string][]string)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		name := vision.NormalizeName(entry.Name())
		if name == "" {
			continue
		}

		files, err := os.ReadDir(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("read student directory %q: %w", entry.Name(), err)
		}
		for _, f := range files {
			if f.IsDir() || !isPhoto(f.Name()) {
				continue
			}
			out[name] = append(out[name], filepath.Join(dir, entry.Name(), f.Name()))
		}
	}
	return out, nil
}

// CountPhotos returns the total number of photos in a ListPhotos result.
func CountPhotos(photos map[string][]string) int {
	n := 0
	for _, paths := range photos {
		n += len(paths)
	}
	return n
}

// Run encodes every photo and persists the resulting reference vectors.
// Photos with no detectable face (or more than one) are skipped with a
// warning rather than failing the run.
func (e *Enroller) Run(ctx context.Context, photos map[string][]string) (Result, error) {
	var res Result

	names := make([]string, 0, len(photos))
	for name := range photos {
		names = append(names, name)
	}
	if err := e.store.SyncStudents(ctx, names); err != nil {
		return res, fmt.Errorf("sync students: %w", err)
	}

	for name, paths := range photos {
		var vectors [][]float32
		for _, path := range paths {
			vec, err := e.encodePhoto(path)
			if e.Progress != nil {
				e.Progress()
			}
			if err != nil {
				res.Skipped++
				e.log.Warn().Err(err).Str("student", name).Str("photo", path).Msg("photo skipped")
				continue
			}
			vectors = append(vectors, vec)
			res.Photos++
		}

		if len(vectors) == 0 {
			e.log.Warn().Str("student", name).Msg("no usable photos, student has no reference vectors")
			continue
		}
		if err := e.store.SaveIdentity(ctx, name, vectors); err != nil {
			return res, fmt.Errorf("save identity %q: %w", name, err)
		}
		res.Students++
	}
	return res, nil
}

// encodePhoto loads one photo and produces its reference vector. Exactly
// one face must be present so the vector is unambiguous.
func (e *Enroller) encodePhoto(path string) ([]float32, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open photo: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode photo: %w", err)
	}
	rgba := frame.ToRGBA(img)

	boxes, err := e.detector.Detect(rgba)
	if err != nil {
		return nil, fmt.Errorf("detect face: %w", err)
	}
	if len(boxes) == 0 {
		return nil, fmt.Errorf("no face found")
	}
	if len(boxes) > 1 {
		return nil, fmt.Errorf("%d faces found, expected exactly one", len(boxes))
	}

	vectors, err := e.encoder.Encode(rgba, boxes)
	if err != nil {
		return nil, fmt.Errorf("encode face: %w", err)
	}
	if len(vectors) == 0 || len(vectors[0]) == 0 {
		return nil, fmt.Errorf("empty feature vector")
	}
	return vectors[0], nil
}

func isPhoto(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".jpg", ".jpeg", ".png":
		return true
	default:
		return false
	}
}
