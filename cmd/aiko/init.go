package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/ayokoji/aiko/internal/persona"
)

// defaultConfigYAML is the starter config written by `aiko init`. All
// values shown are the defaults; the file is a template to edit, not a
// requirement.
const defaultConfigYAML = `# Aiko configuration

listen:
  address: ""        # all interfaces
  port: 8594

models:
  ollama_url: "http://localhost:11434"
  text: "llama3.1"
  vision: "llava"

engine:
  gap_threshold: 2h        # idle time before context resets
  summarize_threshold: 16  # messages before history compacts
  keep_recent: 5           # messages kept after compaction
  max_tool_rounds: 8
  turn_timeout: 2m
  summary_word_cap: 200

session:
  persist: false     # true = sqlite-backed threads that survive restart

mqtt:
  enabled: false
  broker: ""         # mqtt://host:1883 or mqtts://host:8883
  username: ""
  password: ""       # prefer AIKO_MQTT_PASSWORD in .env
  topic_prefix: "aiko"
  device_name: "aiko"

data_dir: "data"
persona_file: ""     # empty = embedded default persona
log_level: "info"    # trace, debug, info, warn, error
log_format: "text"   # text or json
`

// runInit initializes an Aiko working directory with default files.
// Existing files are never overwritten.
func runInit(w io.Writer, dir string) error {
	fmt.Fprintf(w, "Initializing Aiko workspace in %s\n", dir)

	for _, sub := range []string{"data"} {
		path := filepath.Join(dir, sub)
		if err := os.MkdirAll(path, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", path, err)
		}
	}

	configPath := filepath.Join(dir, "aiko.yaml")
	if err := writeIfMissing(configPath, []byte(defaultConfigYAML)); err != nil {
		return err
	}
	fmt.Fprintf(w, "  ✓ %s\n", configPath)

	personaPath := filepath.Join(dir, "persona.md")
	if err := writeIfMissing(personaPath, []byte(persona.Default().Card())); err != nil {
		return err
	}
	fmt.Fprintf(w, "  ✓ %s\n", personaPath)

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Edit aiko.yaml and persona.md to customize your installation.")
	fmt.Fprintln(w, "Set persona_file: persona.md in aiko.yaml to use the extracted card.")
	return nil
}

// writeIfMissing writes content to path only if the file does not
// already exist, so init never overwrites user customizations.
func writeIfMissing(path string, content []byte) error {
	if _, err := os.Stat(path); err == nil {
		return nil // already exists, skip
	}
	return os.WriteFile(path, content, 0o644)
}
