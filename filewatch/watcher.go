// Package filewatch merges catalog and meal CSV files dropped into the data
// directories into the session state.
package filewatch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/aguxez/nutricalc/csvio"
	"github.com/aguxez/nutricalc/models"
)

// defaultSettle is how long a file must go without events before it is read.
const defaultSettle = 250 * time.Millisecond

// FileWatcher monitors the foods and meals directories. Each file's rows
// replace whatever that file contributed on its previous read.
type FileWatcher struct {
	stateMgr *models.StateManager
	watcher  *fsnotify.Watcher
	logger   *slog.Logger
	foodsDir string
	mealsDir string
	settle   time.Duration

	mu       sync.Mutex
	foodRows map[string][]models.Food
	mealRows map[string][]models.MealLineItem

	// OnChange, when set, runs after every successful merge.
	OnChange func()
}

func NewFileWatcher(foodsDir, mealsDir string, sm *models.StateManager, logger *slog.Logger) (*FileWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	for _, path := range []string{foodsDir, mealsDir} {
		if err := os.MkdirAll(path, 0o755); err != nil {
			w.Close()
			return nil, fmt.Errorf("creating %s: %w", path, err)
		}
		if err := w.Add(path); err != nil {
			w.Close()
			return nil, fmt.Errorf("watching %s: %w", path, err)
		}
	}

	return &FileWatcher{
		stateMgr: sm,
		watcher:  w,
		logger:   logger,
		foodsDir: filepath.Clean(foodsDir),
		mealsDir: filepath.Clean(mealsDir),
		settle:   defaultSettle,
		foodRows: make(map[string][]models.Food),
		mealRows: make(map[string][]models.MealLineItem),
	}, nil
}

// LoadAll merges every CSV file already present, foods first so that meal
// files can refer to them, in lexical order within each directory.
func (fw *FileWatcher) LoadAll() error {
	for _, dir := range []string{fw.foodsDir, fw.mealsDir} {
		paths, err := filepath.Glob(filepath.Join(dir, "*.csv"))
		if err != nil {
			return fmt.Errorf("listing %s: %w", dir, err)
		}
		sort.Strings(paths)
		for _, path := range paths {
			if err := fw.HandleFileChange(path); err != nil {
				return err
			}
		}
	}
	return nil
}

// Watch handles events until ctx is done or the watcher is closed. A file is
// read once it has had no events for the settle period, so a burst of writes
// produces a single merge.
func (fw *FileWatcher) Watch(ctx context.Context) {
	done := make(chan struct{})
	settled := make(chan string)
	pending := make(map[string]*time.Timer)
	defer func() {
		for _, t := range pending {
			t.Stop()
		}
		close(done)
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-fw.watcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if !strings.EqualFold(filepath.Ext(event.Name), ".csv") {
				continue
			}
			fw.logger.Debug("csv file changed", "path", event.Name, "op", event.Op.String())
			if t, ok := pending[event.Name]; ok {
				t.Reset(fw.settle)
				continue
			}
			path := event.Name
			pending[path] = time.AfterFunc(fw.settle, func() {
				select {
				case settled <- path:
				case <-done:
				}
			})
		case path := <-settled:
			delete(pending, path)
			if err := fw.HandleFileChange(path); err != nil {
				fw.logger.Warn("csv file rejected", "path", path, "error", err)
			}
		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			fw.logger.Error("watcher error", "error", err)
		}
	}
}

func (fw *FileWatcher) Close() error {
	return fw.watcher.Close()
}

// HandleFileChange parses path according to the directory it lives in and
// merges it. Rows the file contributed before and no longer holds are removed
// first, so a read that caught the file half written is corrected by the next
// one. A file that fails to parse leaves the state untouched.
func (fw *FileWatcher) HandleFileChange(path string) error {
	path = filepath.Clean(path)

	fw.mu.Lock()
	defer fw.mu.Unlock()

	switch filepath.Dir(path) {
	case fw.foodsDir:
		foods, err := parseFile(path, csvio.ParseFoods)
		if err != nil {
			return fmt.Errorf("parsing foods %s: %w", path, err)
		}
		stale := staleRows(fw.foodRows, path, foods)
		fw.foodRows[path] = foods
		fw.stateMgr.ReplaceFoods(stale, foods)
		fw.logger.Info("foods merged", "path", path, "rows", len(foods), "replaced", len(stale))
	case fw.mealsDir:
		items, err := parseFile(path, csvio.ParseMealResults)
		if err != nil {
			return fmt.Errorf("parsing meal %s: %w", path, err)
		}
		stale := staleRows(fw.mealRows, path, items)
		fw.mealRows[path] = items
		fw.stateMgr.ReplaceMealImport(stale, items)
		fw.logger.Info("meal imported", "path", path, "rows", len(items), "replaced", len(stale))
	default:
		return nil
	}

	if fw.OnChange != nil {
		fw.OnChange()
	}
	return nil
}

// staleRows returns the rows path contributed last time that neither its new
// content nor any other tracked file still provides.
func staleRows[T comparable](byPath map[string][]T, path string, next []T) []T {
	keep := make(map[T]struct{})
	for _, r := range next {
		keep[r] = struct{}{}
	}
	for p, rows := range byPath {
		if p == path {
			continue
		}
		for _, r := range rows {
			keep[r] = struct{}{}
		}
	}

	var stale []T
	for _, r := range byPath[path] {
		if _, ok := keep[r]; !ok {
			stale = append(stale, r)
		}
	}
	return stale
}

func parseFile[T any](path string, parse func(io.Reader) ([]T, error)) ([]T, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return parse(f)
}
