// Package main provides an event hook that speaks session events aloud.
// It uses say(1) and afplay(1) on macOS and espeak elsewhere.
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"runtime"
)

// Request represents the input from the plugin executor.
type Request struct {
	Event string `json:"event"`
	Pose  struct {
		ID    string `json:"id"`
		Name  string `json:"name"`
		Index int    `json:"index"`
	} `json:"pose"`
	Points int             `json:"points"`
	Score  int             `json:"score"`
	Level  int             `json:"level"`
	Config json.RawMessage `json:"config"`
}

// Response represents the output to the plugin executor.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Config is the per-binding configuration.
type Config struct {
	Voice  string `json:"voice"`
	Sound  string `json:"sound"`
	DryRun bool   `json:"dry_run"`
}

// eventHandler returns the phrase to speak for an event.
type eventHandler func(req Request) string

var eventHandlers = map[string]eventHandler{
	"pose-completed": poseCompleted,
	"level-up":       levelUp,
}

func main() {
	var req Request
	if err := json.NewDecoder(os.Stdin).Decode(&req); err != nil {
		writeErrorResponse(fmt.Sprintf("failed to decode request: %v", err))
		return
	}

	handler, ok := eventHandlers[req.Event]
	if !ok {
		writeErrorResponse(fmt.Sprintf("unknown event: %s", req.Event))
		return
	}

	var cfg Config
	if len(req.Config) > 0 {
		if err := json.Unmarshal(req.Config, &cfg); err != nil {
			writeErrorResponse(fmt.Sprintf("invalid config: %v", err))
			return
		}
	}

	phrase := handler(req)
	if !cfg.DryRun {
		if cfg.Sound != "" {
			if err := playSound(cfg.Sound); err != nil {
				writeErrorResponse(fmt.Sprintf("play sound: %v", err))
				return
			}
		}
		if err := speak(phrase, cfg.Voice); err != nil {
			writeErrorResponse(fmt.Sprintf("speak: %v", err))
			return
		}
	}

	writeSuccessResponse(phrase)
}

func poseCompleted(req Request) string {
	name := req.Pose.Name
	if name == "" {
		name = req.Pose.ID
	}
	return fmt.Sprintf("%s complete. %d points.", name, req.Points)
}

func levelUp(req Request) string {
	return fmt.Sprintf("Level %d. Score %d.", req.Level, req.Score)
}

// speak reads phrase aloud with the platform's speech synthesizer.
func speak(phrase, voice string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		args := []string{}
		if voice != "" {
			args = append(args, "-v", voice)
		}
		cmd = exec.Command("say", append(args, phrase)...)
	default:
		if _, err := exec.LookPath("espeak"); err != nil {
			return errors.New("no speech synthesizer found")
		}
		args := []string{}
		if voice != "" {
			args = append(args, "-v", voice)
		}
		cmd = exec.Command("espeak", append(args, phrase)...)
	}
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%w: %s", err, string(output))
	}
	return nil
}

func playSound(path string) error {
	if runtime.GOOS != "darwin" {
		return nil
	}
	if output, err := exec.Command("afplay", path).CombinedOutput(); err != nil {
		return fmt.Errorf("%w: %s", err, string(output))
	}
	return nil
}

// writeErrorResponse writes an error response to stdout.
func writeErrorResponse(errMsg string) {
	json.NewEncoder(os.Stdout).Encode(Response{
		Success: false,
		Error:   errMsg,
	})
}

// writeSuccessResponse writes a success response carrying the spoken phrase.
func writeSuccessResponse(phrase string) {
	data, _ := json.Marshal(map[string]string{"phrase": phrase})
	json.NewEncoder(os.Stdout).Encode(Response{
		Success: true,
		Data:    data,
	})
}
