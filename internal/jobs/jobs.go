// Package jobs describes one unit of work: a finished video, its transcript,
// and where the digest goes. Jobs come from CLI flags or from YAML manifests
// dropped into the inbox.
package jobs

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Job is the input to a single pipeline run.
type Job struct {
	VideoPath      string `yaml:"video_path"`
	VideoURL       string `yaml:"video_url"`
	TranscriptPath string `yaml:"transcript_path"`
	Recipient      string `yaml:"recipient,omitempty"`
	Title          string `yaml:"title,omitempty"`

	// ManifestPath is set when the job was read from a file.
	ManifestPath string `yaml:"-"`
}

// IsManifest reports whether path looks like a job manifest.
func IsManifest(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return !strings.HasPrefix(filepath.Base(path), ".")
	default:
		return false
	}
}

// LoadManifest reads a job from a YAML file. Relative paths inside the
// manifest are resolved against the manifest's directory.
func LoadManifest(path string) (Job, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Job{}, fmt.Errorf("read manifest: %w", err)
	}
	var job Job
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&job); err != nil {
		return Job{}, fmt.Errorf("parse manifest %s: %w", filepath.Base(path), err)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	job.ManifestPath = abs
	dir := filepath.Dir(abs)
	job.VideoPath = resolve(dir, job.VideoPath)
	job.TranscriptPath = resolve(dir, job.TranscriptPath)
	return job.Normalized(), nil
}

// WriteManifest saves job as YAML at path.
func WriteManifest(path string, job Job) error {
	data, err := yaml.Marshal(job)
	if err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	return nil
}

// Normalized trims fields and derives a title from the video file name when
// none was given.
func (j Job) Normalized() Job {
	j.VideoPath = strings.TrimSpace(j.VideoPath)
	j.VideoURL = strings.TrimSpace(j.VideoURL)
	j.TranscriptPath = strings.TrimSpace(j.TranscriptPath)
	j.Recipient = strings.TrimSpace(j.Recipient)
	j.Title = strings.TrimSpace(j.Title)
	if j.Title == "" && j.VideoPath != "" {
		j.Title = BaseName(j.VideoPath)
	}
	return j
}

// Validate checks that the job names readable inputs.
func (j Job) Validate() error {
	var errs []error
	if j.VideoPath == "" {
		errs = append(errs, errors.New("video_path is required"))
	} else if err := requireFile(j.VideoPath); err != nil {
		errs = append(errs, fmt.Errorf("video_path: %w", err))
	}
	if j.TranscriptPath == "" {
		errs = append(errs, errors.New("transcript_path is required"))
	} else if err := requireFile(j.TranscriptPath); err != nil {
		errs = append(errs, fmt.Errorf("transcript_path: %w", err))
	}
	return errors.Join(errs...)
}

// BaseName strips directory and extension from a video path.
func BaseName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func requireFile(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory", path)
	}
	return nil
}

func resolve(dir, value string) string {
	value = strings.TrimSpace(value)
	if value == "" || filepath.IsAbs(value) {
		return value
	}
	if strings.HasPrefix(value, "~") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(strings.TrimPrefix(value, "~"), "/"))
		}
	}
	return filepath.Join(dir, value)
}
