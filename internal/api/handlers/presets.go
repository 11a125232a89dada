package handlers

import (
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"multiasset-backtest/internal/api/models"
	"multiasset-backtest/internal/config"
)

// PresetHandler serves the strategy presets stored as YAML files.
type PresetHandler struct {
	presetDir string
	log       logrus.FieldLogger
}

// NewPresetHandler creates a new preset handler
func NewPresetHandler(presetDir string, log logrus.FieldLogger) *PresetHandler {
	if log == nil {
		log = logrus.StandardLogger()
	}
	if abs, err := filepath.Abs(presetDir); err == nil {
		presetDir = abs
	}
	log.WithField("dir", presetDir).Info("using preset directory")
	return &PresetHandler{presetDir: presetDir, log: log.WithField("handler", "presets")}
}

// ListPresets handles GET /api/v1/presets
func (h *PresetHandler) ListPresets(c *gin.Context) {
	presets := []models.PresetInfo{}

	entries, err := os.ReadDir(h.presetDir)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			h.log.WithError(err).Warn("failed to read preset directory")
		}
		c.JSON(http.StatusOK, gin.H{"presets": presets})
		return
	}

	for _, entry := range entries {
		if entry.IsDir() || !isYAML(entry.Name()) {
			continue
		}
		id := strings.TrimSuffix(entry.Name(), filepath.Ext(entry.Name()))
		path := filepath.Join(h.presetDir, entry.Name())
		preset, err := config.LoadPreset(path)
		if err != nil {
			h.log.WithError(err).WithField("file", path).Warn("skipping invalid preset")
			continue
		}
		presets = append(presets, presetInfo(id, path, preset))
	}

	c.JSON(http.StatusOK, gin.H{"presets": presets})
}

// GetPreset handles GET /api/v1/presets/:id
func (h *PresetHandler) GetPreset(c *gin.Context) {
	id := c.Param("id")
	preset, err := loadPreset(h.presetDir, id)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			writeError(c, http.StatusNotFound, "NOT_FOUND", fmt.Sprintf("no preset named %s", id), nil)
			return
		}
		writeError(c, http.StatusBadRequest, "INVALID_PRESET", err.Error(), nil)
		return
	}
	c.JSON(http.StatusOK, presetInfo(id, filepath.Join(h.presetDir, id+".yaml"), preset))
}

// loadPreset reads <dir>/<id>.yaml (or .yml). id must be a bare name.
func loadPreset(dir, id string) (*config.Preset, error) {
	id = strings.TrimSuffix(strings.TrimSuffix(id, ".yaml"), ".yml")
	if id == "" || strings.ContainsAny(id, `/\`) || strings.Contains(id, "..") {
		return nil, fmt.Errorf("invalid preset name %q", id)
	}
	path := filepath.Join(dir, id+".yaml")
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		path = filepath.Join(dir, id+".yml")
	}
	preset, err := config.LoadPreset(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("preset %s: %w", id, fs.ErrNotExist)
		}
		return nil, err
	}
	return preset, nil
}

func presetInfo(id, path string, p *config.Preset) models.PresetInfo {
	return models.PresetInfo{
		ID:          id,
		Name:        p.Name,
		Description: p.Description,
		File:        path,
		Strategy:    p.Strategy.Name,
		Params:      p.Strategy.Params,
	}
}

func isYAML(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".yaml" || ext == ".yml"
}
