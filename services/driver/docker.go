package driver

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/client"
	"github.com/docker/go-connections/nat"
)

// dockerHandle tracks the container backing an isolated browser instance.
type dockerHandle struct {
	containerID  string
	webDriverURL string
}

// DockerDriver launches browsers inside throwaway Selenium-standalone
// containers instead of in-process Playwright processes. It trades
// Playwright's speed for full OS-level isolation, for launch profiles
// configuration marks untrusted (spec's "launchOptions" may request this
// driver for such profiles).
type DockerDriver struct {
	docker *client.Client
}

// NewDockerDriver connects to the local Docker daemon. Returns an error
// if the daemon is unreachable; callers should treat that as "this
// driver is unavailable" rather than a fatal startup error.
func NewDockerDriver(ctx context.Context) (*DockerDriver, error) {
	docker, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("docker client: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if _, err := docker.Ping(pingCtx); err != nil {
		docker.Close()
		return nil, fmt.Errorf("docker ping: %w", err)
	}
	return &DockerDriver{docker: docker}, nil
}

func imageFor(browserType string) string {
	switch browserType {
	case "firefox":
		return "seleniarm/standalone-firefox:latest"
	case "":
		return "seleniarm/standalone-chromium:latest"
	default:
		return fmt.Sprintf("seleniarm/standalone-%s:latest", browserType)
	}
}

func (d *DockerDriver) Launch(ctx context.Context, opts LaunchOptions) (Handle, error) {
	cfg := &container.Config{
		Image:        imageFor(opts.BrowserType),
		ExposedPorts: nat.PortSet{"4444/tcp": {}},
	}
	hostCfg := &container.HostConfig{
		Resources: container.Resources{
			Memory:    2 * 1024 * 1024 * 1024,
			CPUShares: 1024,
		},
		AutoRemove: true,
		PortBindings: nat.PortMap{
			"4444/tcp": []nat.PortBinding{{HostIP: "0.0.0.0", HostPort: "0"}},
		},
	}

	resp, err := d.docker.ContainerCreate(ctx, cfg, hostCfg, nil, nil, "")
	if err != nil {
		return nil, fmt.Errorf("create container: %w", err)
	}
	if err := d.docker.ContainerStart(ctx, resp.ID, container.StartOptions{}); err != nil {
		d.docker.ContainerRemove(ctx, resp.ID, container.RemoveOptions{Force: true})
		return nil, fmt.Errorf("start container: %w", err)
	}

	inspect, err := d.docker.ContainerInspect(ctx, resp.ID)
	if err != nil {
		d.destroy(resp.ID)
		return nil, fmt.Errorf("inspect container: %w", err)
	}
	port := inspect.NetworkSettings.Ports["4444/tcp"][0].HostPort
	h := &dockerHandle{containerID: resp.ID, webDriverURL: fmt.Sprintf("http://localhost:%s", port)}

	if err := d.waitForReady(ctx, h); err != nil {
		d.destroy(resp.ID)
		return nil, fmt.Errorf("wait for ready: %w", err)
	}
	return h, nil
}

func (d *DockerDriver) waitForReady(ctx context.Context, h *dockerHandle) error {
	for i := 0; i < 30; i++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		resp, err := http.Get(h.webDriverURL + "/status")
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}
		time.Sleep(time.Second)
	}
	return fmt.Errorf("timeout waiting for browser readiness")
}

func (d *DockerDriver) destroy(containerID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	d.docker.ContainerStop(ctx, containerID, container.StopOptions{})
	d.docker.ContainerRemove(ctx, containerID, container.RemoveOptions{Force: true})
}

func (d *DockerDriver) Close(ctx context.Context, h Handle) error {
	dh, ok := h.(*dockerHandle)
	if !ok {
		return fmt.Errorf("invalid handle")
	}
	d.destroy(dh.containerID)
	return nil
}

func (d *DockerDriver) IsConnected(ctx context.Context, h Handle) bool {
	dh, ok := h.(*dockerHandle)
	if !ok {
		return false
	}
	inspect, err := d.docker.ContainerInspect(ctx, dh.containerID)
	return err == nil && inspect.State.Running
}

func (d *DockerDriver) Version(ctx context.Context, h Handle) (string, error) {
	return "webdriver", nil
}

func (d *DockerDriver) Pages(ctx context.Context, h Handle) ([]PageHandle, error) {
	return nil, fmt.Errorf("docker driver does not expose page handles")
}

func (d *DockerDriver) NewPage(ctx context.Context, h Handle) (PageHandle, error) {
	return nil, fmt.Errorf("docker driver does not support page-level commands")
}

func (d *DockerDriver) ClosePage(ctx context.Context, p PageHandle) error {
	return fmt.Errorf("docker driver does not support page-level commands")
}

func (d *DockerDriver) PID(h Handle) *int { return nil }

var _ Driver = (*DockerDriver)(nil)
