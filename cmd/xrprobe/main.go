// xrprobe reports XR and camera capabilities of this machine and inspects
// how OBJ models will be fitted in each presentation mode.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Faultbox/xrview/internal/normalize"
	"github.com/Faultbox/xrview/internal/presentation"
	"github.com/Faultbox/xrview/internal/probe"
	"github.com/Faultbox/xrview/internal/scene"
	"github.com/Faultbox/xrview/pkg/formats"
	"github.com/Faultbox/xrview/pkg/math"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "caps":
		cmdCaps(args)
	case "camera":
		cmdCamera(args)
	case "inspect":
		cmdInspect(args)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`xrprobe - XR capability and model inspection utility

Usage:
  xrprobe <command> [options]

Commands:
  caps [--devices glob] [--timeout d]    Probe camera permission and video devices
  camera [--devices glob] [--timeout d]  Open the first video device, then probe
  inspect <file.obj>                     Show bounds and fitted scale per mode

Examples:
  xrprobe caps
  xrprobe camera --devices "/dev/video*"
  xrprobe inspect models/teapot.obj`)
}

func newProber(name string, args []string) *probe.Prober {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	devices := fs.String("devices", "/dev/video*", "Glob for video device nodes")
	timeout := fs.Duration("timeout", 3*time.Second, "Per-capability timeout")
	fs.Parse(args)

	dir := probe.DeviceDir{Pattern: *devices}
	return probe.New(probe.Backends{Permissions: dir, Media: dir}, probe.Options{Timeout: *timeout})
}

// snapshotView is the printed form of a probe snapshot.
type snapshotView struct {
	AR               bool     `yaml:"ar_supported"`
	VR               bool     `yaml:"vr_supported"`
	CameraPermission string   `yaml:"camera_permission"`
	MediaDevices     bool     `yaml:"media_devices"`
	VideoDevices     []string `yaml:"video_devices"`
	Errors           []string `yaml:"errors,omitempty"`
	ProbedAt         string   `yaml:"probed_at"`
}

func printSnapshot(s *probe.Snapshot) {
	v := snapshotView{
		AR:               s.ARSupported,
		VR:               s.VRSupported,
		CameraPermission: string(s.CameraPermission),
		MediaDevices:     s.HasMediaDevices,
		VideoDevices:     []string{},
		Errors:           s.Errors,
		ProbedAt:         s.ProbedAt.Format(time.RFC3339),
	}
	for _, d := range s.Devices {
		v.VideoDevices = append(v.VideoDevices, fmt.Sprintf("%s (%s)", d.Label, d.ID))
	}

	out, err := yaml.Marshal(v)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	os.Stdout.Write(out)
}

func cmdCaps(args []string) {
	p := newProber("caps", args)
	defer p.Close()
	printSnapshot(p.Run(context.Background()))
}

func cmdCamera(args []string) {
	p := newProber("camera", args)
	defer p.Close()

	res, snap := p.CameraTest(context.Background())
	fmt.Printf("camera_test: %s\n", res)
	printSnapshot(snap)
	if res != probe.CameraTestSuccess {
		os.Exit(2)
	}
}

func cmdInspect(args []string) {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: xrprobe inspect <file.obj>")
		os.Exit(1)
	}
	path := args[0]
	if err := formats.CheckOBJPath(path); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	f, err := os.Open(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer f.Close()

	var mtl *os.File
	if m, err := os.Open(strings.TrimSuffix(path, filepath.Ext(path)) + ".mtl"); err == nil {
		defer m.Close()
		mtl = m
	}

	var model *scene.Node
	if mtl != nil {
		model, err = formats.DecodeOBJ(f, mtl)
	} else {
		model, err = formats.DecodeOBJ(f, nil)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	meshes := model.Meshes()
	triangles := 0
	for _, m := range meshes {
		triangles += len(m.Geometry.Indices) / 3
	}
	fmt.Printf("Model:     %s\n", path)
	fmt.Printf("Meshes:    %d\n", len(meshes))
	fmt.Printf("Triangles: %d\n", triangles)

	if box, ok := scene.BoundsOf(model); ok {
		fmt.Printf("Bounds:    min %v  max %v\n", box.Min, box.Max)
	}
	fmt.Println()
	fmt.Printf("  %-8s %-8s %-10s %s\n", "mode", "target", "scale", "note")

	container := scene.NewNode("container")
	container.Add(model)
	for _, mode := range []presentation.Mode{presentation.Desktop, presentation.AR, presentation.VR} {
		// Each mode fits from the decoded placement so results are independent.
		model.Position = math.Vec3{}
		res := normalize.Apply(container, model, presentation.ParametersFor(mode).TargetSize)
		note := ""
		if res.Degenerate {
			note = "degenerate, scale left at 1"
		}
		fmt.Printf("  %-8s %-8.2f %-10.4f %s\n", mode, res.TargetSize, res.Scale, note)
	}
}
