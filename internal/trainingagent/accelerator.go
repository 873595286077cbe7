package trainingagent

import "os"

// HasAccelerator reports whether a GPU accelerator is available to the
// trainer process. Config.HasAccelerator lets deployments state this
// explicitly; absent that, the presence of NVIDIA_VISIBLE_DEVICES (the
// convention used by NVIDIA container runtimes) is treated as a signal.
func HasAccelerator(configured bool) bool {
	if configured {
		return true
	}
	return os.Getenv("NVIDIA_VISIBLE_DEVICES") != ""
}
