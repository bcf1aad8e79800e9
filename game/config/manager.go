package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/wricardo/klotski/game/engine"
	"github.com/wricardo/klotski/game/service"
)

var (
	ErrLayoutNotFound = service.ErrLayoutNotFound
	ErrInvalidLayout  = errors.New("invalid layout file")
	ErrInvalidName    = errors.New("invalid layout name")
)

// Manager handles layout loading and caching
type Manager struct {
	layoutDir     string
	defaultLayout *engine.Layout
	layouts       map[string]*engine.Layout
	mu            sync.RWMutex
}

// NewManager creates a new layout manager reading from layoutDir
func NewManager(layoutDir string) (*Manager, error) {
	// Ensure layout directory exists
	if _, err := os.Stat(layoutDir); os.IsNotExist(err) {
		return nil, fmt.Errorf("layout directory does not exist: %s", layoutDir)
	}

	m := &Manager{
		layoutDir: layoutDir,
		layouts:   make(map[string]*engine.Layout),
	}
	m.defaultLayout = m.loadDefaultLayout()

	return m, nil
}

// LoadLayout loads a layout by name, with or without the .json extension
func (m *Manager) LoadLayout(name string) (*engine.Layout, error) {
	name, err := layoutID(name)
	if err != nil {
		return nil, err
	}

	m.mu.RLock()
	// Check cache first
	if layout, exists := m.layouts[name]; exists {
		m.mu.RUnlock()
		return layout, nil
	}
	m.mu.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()

	// Double-check after acquiring write lock
	if layout, exists := m.layouts[name]; exists {
		return layout, nil
	}

	layout, err := m.readLayout(name)
	if err != nil {
		return nil, err
	}

	m.layouts[name] = layout
	return layout, nil
}

func (m *Manager) readLayout(name string) (*engine.Layout, error) {
	data, err := os.ReadFile(filepath.Join(m.layoutDir, name+".json"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrLayoutNotFound, name)
		}
		return nil, fmt.Errorf("failed to read layout file: %w", err)
	}

	var layout engine.Layout
	if err := json.Unmarshal(data, &layout); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidLayout, name, err)
	}
	if err := engine.ValidateLayout(&layout); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidLayout, name, err)
	}

	return &layout, nil
}

// ListLayouts returns information about every valid layout in the directory,
// sorted by id. Invalid files are skipped.
func (m *Manager) ListLayouts() ([]*service.LayoutInfo, error) {
	entries, err := os.ReadDir(m.layoutDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read layout directory: %w", err)
	}

	var layouts []*service.LayoutInfo
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}

		name := strings.TrimSuffix(entry.Name(), ".json")
		layout, err := m.LoadLayout(name)
		if err != nil {
			continue
		}

		layouts = append(layouts, &service.LayoutInfo{
			Filename:    entry.Name(),
			LayoutID:    name,
			Name:        layout.Name,
			Description: layout.Description,
			Pieces:      countPieces(layout),
		})
	}

	sort.Slice(layouts, func(i, j int) bool { return layouts[i].LayoutID < layouts[j].LayoutID })
	return layouts, nil
}

// GetDefault returns the default layout
func (m *Manager) GetDefault() *engine.Layout {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.defaultLayout
}

// SetDefault sets the default layout by name
func (m *Manager) SetDefault(name string) error {
	layout, err := m.LoadLayout(name)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.defaultLayout = layout
	return nil
}

// RefreshCache drops every cached layout and reloads the default from disk
func (m *Manager) RefreshCache() {
	m.mu.Lock()
	m.layouts = make(map[string]*engine.Layout)
	m.mu.Unlock()

	layout := m.loadDefaultLayout()

	m.mu.Lock()
	m.defaultLayout = layout
	m.mu.Unlock()
}

// loadDefaultLayout prefers classic.json, then the first valid file, then
// the built-in classic layout
func (m *Manager) loadDefaultLayout() *engine.Layout {
	if layout, err := m.LoadLayout("classic"); err == nil {
		return layout
	}

	layouts, err := m.ListLayouts()
	if err == nil && len(layouts) > 0 {
		if layout, err := m.LoadLayout(layouts[0].LayoutID); err == nil {
			return layout
		}
	}

	return engine.ClassicLayout()
}

// SaveLayout validates a layout and writes it to disk
func (m *Manager) SaveLayout(name string, layout *engine.Layout) error {
	name, err := layoutID(name)
	if err != nil {
		return err
	}

	// Validate layout before saving
	if err := engine.ValidateLayout(layout); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrInvalidLayout, name, err)
	}

	data, err := json.MarshalIndent(layout, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal layout: %w", err)
	}

	if err := os.WriteFile(filepath.Join(m.layoutDir, name+".json"), data, 0644); err != nil {
		return fmt.Errorf("failed to write layout file: %w", err)
	}

	// Update cache
	m.mu.Lock()
	m.layouts[name] = layout
	m.mu.Unlock()

	return nil
}

// layoutID strips the .json extension and rejects names that would escape
// the layout directory
func layoutID(name string) (string, error) {
	id := strings.TrimSuffix(name, ".json")
	if id == "" || id == "." || id == ".." || strings.ContainsAny(id, `/\`) {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return id, nil
}

func countPieces(layout *engine.Layout) int {
	n := 0
	for _, entry := range layout.Pieces {
		if entry.Type != engine.EmptyMarker {
			n++
		}
	}
	return n
}
