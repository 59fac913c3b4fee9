package generator

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"
)

const (
	manifestFileName    = ".postpress-manifest.json"
	manifestFileVersion = 1
)

// buildManifest stores metadata about the last successful build to support
// incremental runs. The in-memory maps are keyed by post path and asset
// source; on disk the entries serialise as sorted arrays (manifestFile).
type buildManifest struct {
	Version     int
	GeneratedAt time.Time
	Posts       map[string]manifestPost
	Assets      map[string]manifestAsset
}

// manifestFile is the persisted shape: entry slices sorted by key so the
// artifact is byte-stable across builds.
type manifestFile struct {
	Version     int             `json:"version"`
	GeneratedAt time.Time       `json:"generated_at"`
	Posts       []manifestPost  `json:"posts"`
	Assets      []manifestAsset `json:"assets"`
}

type manifestPost struct {
	Path         string    `json:"path"`
	Slug         string    `json:"slug"`
	Route        string    `json:"route"`
	Output       string    `json:"output"`
	Checksum     string    `json:"checksum"`
	LastModified time.Time `json:"last_modified"`
	RenderedAt   time.Time `json:"rendered_at"`
}

type manifestAsset struct {
	Source   string    `json:"source"`
	Output   string    `json:"output"`
	Checksum string    `json:"checksum"`
	Size     int64     `json:"size"`
	CopiedAt time.Time `json:"copied_at"`
}

func newBuildManifest() *buildManifest {
	return &buildManifest{
		Version: manifestFileVersion,
		Posts:   map[string]manifestPost{},
		Assets:  map[string]manifestAsset{},
	}
}

func parseManifest(data []byte) (*buildManifest, error) {
	if len(data) == 0 {
		return newBuildManifest(), nil
	}
	var file manifestFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("generator: parse manifest: %w", err)
	}

	manifest := newBuildManifest()
	manifest.GeneratedAt = file.GeneratedAt
	if file.Version != 0 {
		manifest.Version = file.Version
	}
	for _, entry := range file.Posts {
		manifest.setPost(entry)
	}
	for _, entry := range file.Assets {
		manifest.setAsset(entry)
	}
	return manifest, nil
}

func (m *buildManifest) marshal() ([]byte, error) {
	if m == nil {
		return nil, nil
	}
	file := manifestFile{
		Version:     m.Version,
		GeneratedAt: m.GeneratedAt,
	}
	if file.Version == 0 {
		file.Version = manifestFileVersion
	}
	if len(m.Posts) > 0 {
		file.Posts = make([]manifestPost, 0, len(m.Posts))
		for _, entry := range m.Posts {
			file.Posts = append(file.Posts, entry)
		}
		sort.Slice(file.Posts, func(i, j int) bool {
			return file.Posts[i].Path < file.Posts[j].Path
		})
	}
	if len(m.Assets) > 0 {
		file.Assets = make([]manifestAsset, 0, len(m.Assets))
		for _, entry := range m.Assets {
			file.Assets = append(file.Assets, entry)
		}
		sort.Slice(file.Assets, func(i, j int) bool {
			return file.Assets[i].Source < file.Assets[j].Source
		})
	}
	return json.MarshalIndent(file, "", "  ")
}

func (m *buildManifest) postKey(path string) string {
	return strings.TrimSpace(path)
}

func (m *buildManifest) lookupPost(path string) (manifestPost, bool) {
	if m == nil || len(m.Posts) == 0 {
		return manifestPost{}, false
	}
	entry, ok := m.Posts[m.postKey(path)]
	return entry, ok
}

func (m *buildManifest) setPost(entry manifestPost) {
	if m == nil {
		return
	}
	if m.Posts == nil {
		m.Posts = map[string]manifestPost{}
	}
	m.Posts[m.postKey(entry.Path)] = entry
}

func (m *buildManifest) shouldSkipPost(path, checksum, output string) bool {
	entry, ok := m.lookupPost(path)
	if !ok {
		return false
	}
	if entry.Checksum != checksum {
		return false
	}
	return strings.TrimSpace(entry.Output) == strings.TrimSpace(output)
}

// prunePosts drops manifest entries for posts that no longer exist so removed
// files do not linger in incremental state.
func (m *buildManifest) prunePosts(keys map[string]struct{}) {
	if m == nil || len(m.Posts) == 0 {
		return
	}
	for key := range m.Posts {
		if _, ok := keys[key]; !ok {
			delete(m.Posts, key)
		}
	}
}

func (m *buildManifest) lookupAsset(source string) (manifestAsset, bool) {
	if m == nil || len(m.Assets) == 0 {
		return manifestAsset{}, false
	}
	entry, ok := m.Assets[strings.TrimSpace(source)]
	return entry, ok
}

func (m *buildManifest) setAsset(entry manifestAsset) {
	if m == nil {
		return
	}
	if m.Assets == nil {
		m.Assets = map[string]manifestAsset{}
	}
	m.Assets[strings.TrimSpace(entry.Source)] = entry
}

func (m *buildManifest) shouldSkipAsset(source, checksum, output string) bool {
	entry, ok := m.lookupAsset(source)
	if !ok {
		return false
	}
	if entry.Checksum != checksum {
		return false
	}
	return strings.TrimSpace(entry.Output) == strings.TrimSpace(output)
}
