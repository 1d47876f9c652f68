package probe

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// DeviceDir lists video inputs as /dev/video* style device files.
type DeviceDir struct {
	Pattern string // Glob for device nodes; "" means /dev/video*
}

func (d DeviceDir) pattern() string {
	if d.Pattern == "" {
		return "/dev/video*"
	}
	return d.Pattern
}

// VideoInputs implements MediaDevices.
func (d DeviceDir) VideoInputs(ctx context.Context) ([]Device, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	matches, err := filepath.Glob(d.pattern())
	if err != nil {
		return nil, err
	}
	sort.Strings(matches)

	devices := make([]Device, 0, len(matches))
	for _, path := range matches {
		devices = append(devices, Device{ID: path, Label: deviceLabel(path)})
	}
	return devices, nil
}

// OpenVideo implements MediaDevices by opening the device node for reading.
func (d DeviceDir) OpenVideo(ctx context.Context, dev Device) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f, err := os.Open(dev.ID)
	if err != nil {
		return err
	}
	return f.Close()
}

// Camera implements Permissions: the first device node decides. Readable
// means granted, a permission error means denied.
func (d DeviceDir) Camera(ctx context.Context) (Permission, error) {
	devices, err := d.VideoInputs(ctx)
	if err != nil {
		return PermissionUnknown, err
	}
	if len(devices) == 0 {
		return PermissionUnknown, nil
	}
	f, err := os.Open(devices[0].ID)
	switch {
	case err == nil:
		_ = f.Close()
		return PermissionGranted, nil
	case errors.Is(err, fs.ErrPermission):
		return PermissionDenied, nil
	default:
		return PermissionUnknown, err
	}
}

// deviceLabel returns the kernel-reported name of a V4L device, or its base name.
func deviceLabel(path string) string {
	base := filepath.Base(path)
	name, err := os.ReadFile(filepath.Join("/sys/class/video4linux", base, "name"))
	if err != nil {
		return base
	}
	return strings.TrimSpace(string(name))
}
