package data

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"reelsim/internal/biz"
	"reelsim/internal/book"
	"reelsim/internal/force"
	"reelsim/internal/outcome"
	"reelsim/internal/profile"
	"reelsim/internal/simerr"

	jsoniter "github.com/json-iterator/go"
	"github.com/yola1107/kratos/v2/log"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// 文件名
const (
	tablePattern   = "lookUpTable_%s.csv"
	booksPattern   = "books_%s.jsonl"
	forcePattern   = "force_%s.json"
	summaryPattern = "summary_%s.json"
	modesFile      = "modes.yaml"
)

type artifactRepo struct {
	data *Data
	log  *log.Helper
}

// NewArtifactRepo .
func NewArtifactRepo(data *Data, logger log.Logger) biz.ArtifactRepo {
	return &artifactRepo{
		data: data,
		log:  log.NewHelper(logger),
	}
}

func (r *artifactRepo) Dir(runID string) string {
	return filepath.Join(r.data.artifacts, runID)
}

// path resolves one artifact. Ids and mode names come from requests and may not leave the
// run directory.
func (r *artifactRepo) path(runID, pattern, mode string) (string, error) {
	for _, s := range []string{runID, mode} {
		if s == "" || s == "." || s == ".." || strings.ContainsAny(s, `/\`) {
			return "", simerr.InvalidQuery("invalid run or mode name %q", s)
		}
	}
	return filepath.Join(r.Dir(runID), fmt.Sprintf(pattern, mode)), nil
}

func (r *artifactRepo) create(runID, pattern, mode string) (string, error) {
	p, err := r.path(runID, pattern, mode)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return "", err
	}
	return p, nil
}

func (r *artifactRepo) SaveTable(runID, mode string, t *outcome.Table) (string, error) {
	p, err := r.create(runID, tablePattern, mode)
	if err != nil {
		return "", err
	}
	return p, t.WriteFile(p)
}

func (r *artifactRepo) CreateBooks(runID, mode string, compress bool) (*book.Writer, string, error) {
	p, err := r.create(runID, booksPattern, mode)
	if err != nil {
		return nil, "", err
	}
	if compress {
		p += book.Ext
	}
	w, err := book.Create(p)
	if err != nil {
		return nil, "", err
	}
	return w, p, nil
}

func (r *artifactRepo) SaveForce(runID, mode string, ix *force.Index) (string, error) {
	p, err := r.create(runID, forcePattern, mode)
	if err != nil {
		return "", err
	}
	return p, ix.WriteFile(p)
}

func (r *artifactRepo) SaveSummary(s *biz.RunSummary) (string, error) {
	p, err := r.create(s.RunID, summaryPattern, s.Mode)
	if err != nil {
		return "", err
	}
	raw, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return "", err
	}
	return p, os.WriteFile(p, raw, 0o644)
}

func (r *artifactRepo) SaveModes(runID string, cfg *profile.Config) (string, error) {
	p, err := r.create(runID, "%s", modesFile)
	if err != nil {
		return "", err
	}
	return p, cfg.WriteFile(p)
}

func (r *artifactRepo) LoadTable(runID, mode string) (*outcome.Table, error) {
	p, err := r.path(runID, tablePattern, mode)
	if err != nil {
		return nil, err
	}
	return outcome.ReadFile(p)
}

func (r *artifactRepo) LoadForce(runID, mode string) (*force.Index, error) {
	p, err := r.path(runID, forcePattern, mode)
	if err != nil {
		return nil, err
	}
	return force.ReadFile(p)
}

func (r *artifactRepo) LoadSummary(runID, mode string) (*biz.RunSummary, error) {
	p, err := r.path(runID, summaryPattern, mode)
	if err != nil {
		return nil, err
	}
	raw, err := os.ReadFile(p)
	if err != nil {
		return nil, err
	}
	var s biz.RunSummary
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("decode %s: %w", p, err)
	}
	return &s, nil
}
