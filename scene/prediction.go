package scene

import (
	"github.com/golang/geo/r3"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Units tags whether a prediction's geometry is expressed in real-world
// units or only up to an unknown global scale.
type Units int

const (
	// UnitsRelative marks geometry recovered up to an unknown global scale in
	// an arbitrary world frame.
	UnitsRelative Units = iota
	// UnitsMetric marks geometry expressed in real-world units.
	UnitsMetric
)

// String implements fmt.Stringer.
func (u Units) String() string {
	switch u {
	case UnitsRelative:
		return "relative"
	case UnitsMetric:
		return "metric"
	default:
		return "unknown"
	}
}

// Prediction is an ordered sequence of views of one scene. Before fusion,
// predicted poses live in an arbitrary relative frame with unknown scale;
// after fusion every view shares a common world frame.
type Prediction struct {
	SceneID string
	Units   Units
	Views   []*View
}

// NewPrediction returns a relative-units prediction over the given views. A
// fresh scene identifier is generated when none is supplied. A prediction
// with no views at all is the one fatal input condition.
func NewPrediction(sceneID string, views []*View) (*Prediction, error) {
	if len(views) == 0 {
		return nil, errors.New("prediction must contain at least one view")
	}
	if sceneID == "" {
		sceneID = uuid.NewString()
	}
	return &Prediction{SceneID: sceneID, Units: UnitsRelative, Views: views}, nil
}

// CameraCenters returns the world-space camera center of every view, in view
// order.
func (p *Prediction) CameraCenters() []r3.Vector {
	centers := make([]r3.Vector, len(p.Views))
	for i, v := range p.Views {
		centers[i] = v.Pose.Center()
	}
	return centers
}
