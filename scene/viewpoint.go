package scene

import (
	"encoding/json"
	"os"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
)

const viewpointVersion = "1.0"

// Viewpoint is the persisted camera pose. Angles are in degrees.
type Viewpoint struct {
	Version       string     `json:"version"`
	Position      [3]float32 `json:"position"`
	Theta         float32    `json:"theta"`
	Phi           float32    `json:"phi"`
	MovementSpeed float32    `json:"movement_speed,omitempty"`
}

// Viewpoint captures the current camera pose.
func (c *Camera) Viewpoint() Viewpoint {
	return Viewpoint{
		Version:       viewpointVersion,
		Position:      c.position,
		Theta:         mgl32.RadToDeg(c.theta),
		Phi:           mgl32.RadToDeg(c.phi),
		MovementSpeed: c.movementSpeed,
	}
}

// SetViewpoint restores a pose captured by Viewpoint.
func (c *Camera) SetViewpoint(vp Viewpoint) {
	c.SetPosRot(vp.Position, vp.Theta, vp.Phi)
	if vp.MovementSpeed > 0 {
		c.movementSpeed = max(vp.MovementSpeed, MinMovementSpeed)
	}
}

func SaveViewpoint(path string, vp Viewpoint) error {
	data, err := json.MarshalIndent(vp, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to marshal viewpoint")
	}
	return errors.Wrap(os.WriteFile(path, data, 0o644), "failed to write viewpoint")
}

func LoadViewpoint(path string) (Viewpoint, error) {
	var vp Viewpoint
	data, err := os.ReadFile(path)
	if err != nil {
		return vp, errors.Wrap(err, "failed to read viewpoint file")
	}
	if err := json.Unmarshal(data, &vp); err != nil {
		return vp, errors.Wrapf(err, "failed to parse viewpoint file %s", path)
	}
	if vp.Version != viewpointVersion {
		return vp, errors.Errorf("unsupported viewpoint version %q in %s", vp.Version, path)
	}
	return vp, nil
}
