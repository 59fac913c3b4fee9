package generator

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	gotheme "github.com/goliatone/go-theme"
)

// collectManifestAssets lists the theme files to copy into the output tree.
// Variant-level assets override the base manifest entries with the same key.
func collectManifestAssets(selection *gotheme.Selection) []string {
	if selection == nil || selection.Manifest == nil {
		return nil
	}

	assets := selection.Manifest.Assets.Files
	if variant := strings.TrimSpace(selection.Variant); variant != "" {
		if v, ok := selection.Manifest.Variants[variant]; ok && len(v.Assets.Files) > 0 {
			merged := make(map[string]string, len(selection.Manifest.Assets.Files)+len(v.Assets.Files))
			for key, file := range selection.Manifest.Assets.Files {
				merged[key] = file
			}
			for key, file := range v.Assets.Files {
				merged[key] = file
			}
			assets = merged
		}
	}

	seen := map[string]struct{}{}
	var out []string
	for _, asset := range assets {
		asset = strings.TrimPrefix(strings.TrimSpace(asset), "/")
		if asset == "" {
			continue
		}
		if _, ok := seen[asset]; ok {
			continue
		}
		seen[asset] = struct{}{}
		out = append(out, filepath.ToSlash(asset))
	}
	sort.Strings(out)
	return out
}

type assetOutcome struct {
	copied  int
	skipped int
}

// copyThemeAssets mirrors the selected theme's static files into the output
// assets directory. Unchanged files are skipped via the build manifest when
// running incrementally.
func (s *service) copyThemeAssets(
	ctx context.Context,
	writer artifactWriter,
	manifest *buildManifest,
	selection *gotheme.Selection,
	dirCache map[string]struct{},
) (assetOutcome, error) {
	outcome := assetOutcome{}
	assets := collectManifestAssets(selection)
	if len(assets) == 0 {
		return outcome, nil
	}

	baseDir := strings.Trim(strings.TrimSpace(s.cfg.OutputDir), "/")

	for _, asset := range assets {
		if err := ctx.Err(); err != nil {
			return outcome, err
		}

		source := filepath.Join(s.cfg.Theming.Path, filepath.FromSlash(asset))
		content, err := os.ReadFile(source)
		if err != nil {
			return outcome, fmt.Errorf("generator: read theme asset %s: %w", asset, err)
		}

		checksum := computeHash(content)
		target := joinOutputPath(baseDir, path.Join("assets", asset))

		if s.cfg.Incremental && manifest != nil && manifest.shouldSkipAsset(asset, checksum, target) {
			outcome.skipped++
			continue
		}

		if err := ensureDir(ctx, writer, dirCache, path.Dir(target)); err != nil {
			return outcome, err
		}
		if err := writer.WriteFile(ctx, writeFileRequest{
			Path:        target,
			Content:     bytes.NewReader(content),
			Size:        int64(len(content)),
			Category:    categoryAsset,
			ContentType: detectAssetContentType(asset),
			Checksum:    checksum,
			Metadata: map[string]string{
				"source": filepath.ToSlash(source),
			},
		}); err != nil {
			return outcome, err
		}

		if manifest != nil {
			manifest.setAsset(manifestAsset{
				Source:   asset,
				Output:   target,
				Checksum: checksum,
				Size:     int64(len(content)),
				CopiedAt: s.now().UTC(),
			})
		}
		outcome.copied++
	}

	return outcome, nil
}

func detectAssetContentType(asset string) string {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(asset), "."))
	switch ext {
	case "css":
		return "text/css"
	case "js":
		return "application/javascript"
	case "json":
		return "application/json"
	case "svg":
		return "image/svg+xml"
	case "png":
		return "image/png"
	case "jpg", "jpeg":
		return "image/jpeg"
	case "gif":
		return "image/gif"
	case "webp":
		return "image/webp"
	case "ico":
		return "image/x-icon"
	case "woff":
		return "font/woff"
	case "woff2":
		return "font/woff2"
	default:
		return "application/octet-stream"
	}
}
