package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"glaucomaml/ml"
	"glaucomaml/predict"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestStartupMissingArtifact(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "glaucoma_type.json")
	_, err := startup(writeConfig(t, "model:\n  path: "+missing+"\nlog:\n  level: error\n"))

	var serr *StartupError
	if !errors.As(err, &serr) {
		t.Fatalf("expected StartupError, got %v", err)
	}
	if !errors.Is(err, ml.ErrArtifactNotFound) {
		t.Fatalf("expected ErrArtifactNotFound, got %v", err)
	}
	if !strings.Contains(serr.Hint, "not found") || !strings.Contains(serr.Hint, missing) {
		t.Fatalf("unexpected hint: %q", serr.Hint)
	}
}

func TestStartupMissingConfig(t *testing.T) {
	_, err := startup(filepath.Join(t.TempDir(), "absent.yaml"))
	var serr *StartupError
	if !errors.As(err, &serr) {
		t.Fatalf("expected StartupError, got %v", err)
	}
}

func TestStartupStrictAlignment(t *testing.T) {
	dir := t.TempDir()
	model := filepath.Join(dir, "model.json")
	artifact := `{
  "type": "logistic_regression",
  "feature_names": ["Age", "Central Corneal Thickness"],
  "class_codes": [0, 1],
  "labels": ["No Glaucoma", "Glaucoma"],
  "coef": [[0.01, 0.02]],
  "intercept": [0]
}`
	if err := os.WriteFile(model, []byte(artifact), 0o600); err != nil {
		t.Fatalf("write model: %v", err)
	}
	_, err := startup(writeConfig(t, "model:\n  path: "+model+"\n  variant: glaucoma_detection\n  alignment: strict\nlog:\n  level: error\n"))

	var merr *predict.MisalignmentError
	if !errors.As(err, &merr) {
		t.Fatalf("expected MisalignmentError, got %v", err)
	}
	var serr *StartupError
	if !errors.As(err, &serr) {
		t.Fatalf("expected StartupError, got %v", err)
	}
}

func TestStartupServesBundledModels(t *testing.T) {
	cases := map[string]string{
		"glaucoma_type":      "models/glaucoma_type.json",
		"glaucoma_detection": "models/glaucoma_detection.json",
	}
	for variant, path := range cases {
		app, err := startup(writeConfig(t, "model:\n  path: "+path+"\n  variant: "+variant+"\n  alignment: strict\nlog:\n  level: error\n"))
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", variant, err)
		}

		layout := app.service.Layout()
		res, err := app.service.Predict(context.Background(), layout.Defaults())
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", variant, err)
		}
		if res.Label == "" || res.Interpretation == "" {
			t.Fatalf("%s: empty result %+v", variant, res)
		}
		if variant == "glaucoma_detection" && res.Label != "No Glaucoma" {
			t.Fatalf("expected the default form to be negative, got %q", res.Label)
		}
		if layout.Name != variant {
			t.Fatalf("unexpected layout %q", layout.Name)
		}
	}
}
