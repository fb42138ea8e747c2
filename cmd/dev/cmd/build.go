package cmd

import (
	"fmt"
	"log/slog"
	"runtime"

	"github.com/gophertribe/devtool/build"
	"github.com/spf13/cobra"
)

const (
	binary        = "dist/breath"
	mainPackage   = "./cmd/breath"
	configPackage = "github.com/mklimuk/breath/config"
	builderImage  = "gophertribe/gobuild:1.25-bookworm"
)

// buildPlan is either a go build for os/arch or a docker run of the dev tool
// with dockerArgs.
type buildPlan struct {
	docker     bool
	os         string
	arch       string
	dockerArgs []string
}

// planBuild decides how to build for os/arch on a hostOS/hostArch machine. A foreign
// target runs in the builder image with the target passed as cross flags, so the
// in-container run sees a native os/arch and compiles through go build.
func planBuild(hostOS, hostArch, version, os, arch, crossOS, crossArch string) buildPlan {
	if os == hostOS && arch == hostArch {
		if crossOS != "" && crossArch != "" {
			os, arch = crossOS, crossArch
		}
		return buildPlan{os: os, arch: arch}
	}
	return buildPlan{
		docker: true,
		os:     os,
		arch:   arch,
		dockerArgs: []string{
			"build", "--version", version, "--cross-os", os, "--cross-arch", arch,
		},
	}
}

// BuildCmd builds the breath cli. Builds for a foreign platform run inside the
// builder image since periph and hid need cgo.
func BuildCmd() *cobra.Command {
	var (
		version, targetOS, targetArch, crossOS, crossArch string
		noCache                                           bool
	)
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build the breath cli",
		RunE: func(cmd *cobra.Command, args []string) error {
			plan := planBuild(runtime.GOOS, runtime.GOARCH, version, targetOS, targetArch, crossOS, crossArch)
			if !plan.docker {
				slog.Info("building", "os", plan.os, "arch", plan.arch, "version", version)
				return build.GoBuild(binary, mainPackage, build.GoBuildOpts{
					Version:       version,
					InjectVersion: true,
					ConfigPackage: configPackage,
					EnableCgo:     true,
					Arch:          plan.arch,
					OS:            plan.os,
				})
			}
			slog.Info("building in docker", "os", plan.os, "arch", plan.arch, "image", builderImage)
			err := build.Docker(cmd.Context(), fmt.Sprintf("./dev-%s-%s", runtime.GOOS, runtime.GOARCH),
				plan.dockerArgs,
				build.DockerBuildOpts{
					NoCache: noCache,
					Image:   builderImage,
				})
			if err != nil {
				return fmt.Errorf("docker build for %s/%s: %w", plan.os, plan.arch, err)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "do not use cache when building in docker")
	cmd.Flags().StringVar(&version, "version", "latest", "version injected into the binary")
	cmd.Flags().StringVar(&targetOS, "os", runtime.GOOS, "target os")
	cmd.Flags().StringVar(&targetArch, "arch", runtime.GOARCH, "target arch")
	cmd.Flags().StringVar(&crossOS, "cross-os", "", "os to cross-compile for with go build")
	cmd.Flags().StringVar(&crossArch, "cross-arch", "", "arch to cross-compile for with go build")
	return cmd
}
