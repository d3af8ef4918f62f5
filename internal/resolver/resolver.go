// Package resolver implements the file path resolver (C9): a pure,
// HTTP-layer-independent function that maps a client-supplied path to a
// file that actually exists on disk, trying progressively looser
// strategies. Grounded strategy-for-strategy on
// original_source/endpoints/file_api.py's get_file/check_file_exists
// path-hunting logic.
package resolver

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

var (
	duplicateInspectionRe = regexp.MustCompile(`(?i)(inspection/.*?)inspection/`)
	windowsAbsRe          = regexp.MustCompile(`^[a-zA-Z]:[/\\]`)
	inspectionSuffixRe    = regexp.MustCompile(`(?i)inspection[/\\](.*)`)
)

// Attempt records one candidate path the resolver tried, for diagnostics
// (the /api/file/check endpoint, spec.md §5's supplemented feature).
type Attempt struct {
	Path   string
	Exists bool
}

// Result is the outcome of Resolve.
type Result struct {
	OriginalPath   string
	NormalizedPath string
	Attempts       []Attempt
	FoundPath      string
	Found          bool
}

// Resolve maps requestedPath to an existing file under inspectionDir,
// trying strategies in order until one produces a file that exists:
//
//  1. Collapse a duplicated "...inspection/...inspection/..." segment.
//  2. A Windows-style absolute path ("C:\...") rewritten to its
//     inspection-relative tail.
//  3. A path already relative to inspectionDir's parent ("src-api/..." in
//     the original layout), rewritten by stripping that prefix.
//  4. The substring following the last "inspection/" segment, resolved
//     under inspectionDir directly.
//  5. The bare filename located in one of inspectionDir's date
//     subdirectories (matching the capture layout gate.go writes).
//  6. The bare filename located anywhere under inspectionDir via a
//     recursive walk.
//  7. A glob for the frame-id pattern ("..._frameNNN_...") if the
//     basename decomposes into one, the final and loosest fallback for a
//     file whose basename changed (e.g. a timestamp suffix) but whose
//     frame number still matches.
//
// Every candidate tried is recorded in Result.Attempts regardless of
// whether it exists, so callers can surface the full search trail.
func Resolve(requestedPath, inspectionDir string) Result {
	res := Result{OriginalPath: requestedPath}

	path := strings.ReplaceAll(requestedPath, `\`, "/")
	path = collapseDuplicateInspectionSegment(path)
	res.NormalizedPath = path

	var candidates []string

	if m := windowsAbsRe.FindString(path); m != "" {
		if tail := inspectionSuffixRe.FindStringSubmatch(path); tail != nil {
			candidates = append(candidates, filepath.Join(inspectionDir, filepath.FromSlash(tail[1])))
		}
	} else if strings.HasPrefix(path, "src-api/") {
		// Historical layout: paths rooted at the original's project dir.
		// Translated here to the inspection directory directly, since this
		// module has no separate "src-api" root.
		candidates = append(candidates, filepath.Join(inspectionDir, strings.TrimPrefix(path, "src-api/data/images/inspection/")))
	}

	if tail := inspectionSuffixRe.FindStringSubmatch(path); tail != nil {
		candidates = append(candidates, filepath.Join(inspectionDir, filepath.FromSlash(tail[1])))
	}

	candidates = append(candidates, filepath.Join(inspectionDir, filepath.FromSlash(path)))

	filename := filepath.Base(path)
	if filename != "" && filename != "." && filename != "/" {
		candidates = append(candidates, dateFolderCandidates(inspectionDir, filename)...)
	}

	seen := make(map[string]bool)
	for _, c := range candidates {
		if seen[c] {
			continue
		}
		seen[c] = true
		exists := isFile(c)
		res.Attempts = append(res.Attempts, Attempt{Path: c, Exists: exists})
		if exists && !res.Found {
			res.Found = true
			res.FoundPath = c
		}
	}

	if !res.Found && filename != "" {
		if found, ok := recursiveSearch(inspectionDir, filename); ok {
			res.Attempts = append(res.Attempts, Attempt{Path: found, Exists: true})
			res.Found = true
			res.FoundPath = found
		}
	}

	if !res.Found && filename != "" {
		if frameID, ok := frameIDPart(filename); ok {
			for _, m := range frameIDGlob(inspectionDir, frameID) {
				res.Attempts = append(res.Attempts, Attempt{Path: m, Exists: true})
				if !res.Found {
					res.Found = true
					res.FoundPath = m
				}
			}
		}
	}

	return res
}

// frameIDPart extracts the "frameNNN"-shaped component from an
// underscore-delimited basename (spec.md §4.9 strategy 6: "glob for
// frame-id pattern if basename decomposes into '..._frameNNN_...'"),
// matching original_source/endpoints/file_api.py's
// `next(part for part in base_parts if part.startswith('frame'))`.
func frameIDPart(filename string) (string, bool) {
	if !strings.Contains(filename, "_") {
		return "", false
	}
	parts := strings.Split(filename, "_")
	if len(parts) <= 2 {
		return "", false
	}
	for _, p := range parts {
		if strings.HasPrefix(p, "frame") {
			return p, true
		}
	}
	return "", false
}

func collapseDuplicateInspectionSegment(path string) string {
	loc := duplicateInspectionRe.FindStringIndex(path)
	if loc == nil {
		return path
	}
	idx := strings.LastIndex(strings.ToLower(path), "inspection/")
	if idx == -1 {
		return path
	}
	return path[idx:]
}

// dateFolderCandidates looks for filename directly under each immediate
// subdirectory of inspectionDir (the YYYYMMDD date folders gate.go
// writes captures into).
func dateFolderCandidates(inspectionDir, filename string) []string {
	entries, err := os.ReadDir(inspectionDir)
	if err != nil {
		return nil
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() {
			out = append(out, filepath.Join(inspectionDir, e.Name(), filename))
		}
	}
	return out
}

func recursiveSearch(root, filename string) (string, bool) {
	var found string
	_ = filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil || found != "" {
			return nil
		}
		if !d.IsDir() && d.Name() == filename {
			found = path
		}
		return nil
	})
	return found, found != ""
}

// frameIDGlob recursively collects every ".bmp" file under root whose
// basename starts with frameID, the Go equivalent of the original's
// `glob.glob(os.path.join(inspection_dir, '**', frame_part+"*.bmp"),
// recursive=True)` (filepath.Glob has no "**" recursive wildcard).
func frameIDGlob(root, frameID string) []string {
	var out []string
	_ = filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		name := d.Name()
		if strings.HasPrefix(name, frameID) && strings.HasSuffix(strings.ToLower(name), ".bmp") {
			out = append(out, path)
		}
		return nil
	})
	return out
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
