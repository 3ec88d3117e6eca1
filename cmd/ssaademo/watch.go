package main

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/gogpu/ssaa/config"
)

// debounce collapses the burst of events editors produce on save.
const debounce = 200 * time.Millisecond

// watch re-runs run whenever the config or a shader file it names changes.
// Directories are watched rather than files so atomic-rename saves are seen.
func watch(ctx context.Context, f flags, run func() error) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	files := watchedFiles(f)
	if len(files) == 0 {
		return fmt.Errorf("-watch needs -config or shader files to watch")
	}
	dirs := make(map[string]bool)
	for _, file := range files {
		dirs[filepath.Dir(file)] = true
	}
	for dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			return fmt.Errorf("watch %s: %w", dir, err)
		}
	}
	log.Printf("watching %d files, Ctrl-C to stop", len(files))

	var timer <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil
		case event := <-watcher.Events:
			if !isWatched(event.Name, files) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				timer = time.After(debounce)
			}
		case err := <-watcher.Errors:
			log.Printf("watch: %v", err)
		case <-timer:
			timer = nil
			if err := run(); err != nil {
				log.Print(err)
			}
			// The shader set may have changed with the config.
			files = watchedFiles(f)
		}
	}
}

func watchedFiles(f flags) []string {
	if f.config == "" {
		return nil
	}
	files := []string{f.config}
	cfg, err := config.Load(f.config)
	if err != nil {
		return clean(files)
	}
	return clean(append(files, cfg.ShaderFiles(filepath.Dir(f.config))...))
}

func clean(files []string) []string {
	for i, f := range files {
		files[i] = filepath.Clean(f)
	}
	return files
}

func isWatched(name string, files []string) bool {
	name = filepath.Clean(name)
	for _, f := range files {
		if f == name {
			return true
		}
	}
	return false
}
