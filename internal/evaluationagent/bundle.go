package evaluationagent

import (
	_ "embed"
	"encoding/json"
	"os"
	"path/filepath"

	"automl-orchestrator/internal/archiveutil"
	"automl-orchestrator/internal/errkind"
)

//go:embed templates/predict.py
var predictScript []byte

//go:embed templates/README.txt
var readmeText []byte

// BuildBundle assembles the four-file user bundle (model.pth, predict.py,
// labels.json, README.txt) in workDir and zips it to zipPath.
func BuildBundle(workDir, weightsPath string, labels []string, zipPath string) error {
	bundleDir := filepath.Join(workDir, "bundle")
	if err := os.MkdirAll(bundleDir, 0o755); err != nil {
		return errkind.Wrap(errkind.Permanent, "create bundle directory", err)
	}

	weights, err := os.ReadFile(weightsPath)
	if err != nil {
		return errkind.Wrap(errkind.Permanent, "read trained weights", err)
	}
	if err := os.WriteFile(filepath.Join(bundleDir, "model.pth"), weights, 0o644); err != nil {
		return errkind.Wrap(errkind.Permanent, "write bundle weights", err)
	}

	labelsJSON, err := json.Marshal(labels)
	if err != nil {
		return errkind.Wrap(errkind.Permanent, "marshal labels", err)
	}
	if err := os.WriteFile(filepath.Join(bundleDir, "labels.json"), labelsJSON, 0o644); err != nil {
		return errkind.Wrap(errkind.Permanent, "write labels.json", err)
	}

	if err := os.WriteFile(filepath.Join(bundleDir, "predict.py"), predictScript, 0o644); err != nil {
		return errkind.Wrap(errkind.Permanent, "write predict.py", err)
	}
	if err := os.WriteFile(filepath.Join(bundleDir, "README.txt"), readmeText, 0o644); err != nil {
		return errkind.Wrap(errkind.Permanent, "write README.txt", err)
	}

	files := map[string]string{
		"model.pth":   filepath.Join(bundleDir, "model.pth"),
		"labels.json": filepath.Join(bundleDir, "labels.json"),
		"predict.py":  filepath.Join(bundleDir, "predict.py"),
		"README.txt":  filepath.Join(bundleDir, "README.txt"),
	}
	if err := archiveutil.CreateZip(zipPath, files); err != nil {
		return err
	}
	return nil
}
