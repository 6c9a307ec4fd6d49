package rollout

import (
	"encoding/json"

	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/trajopt/internal/world"
)

func columnVec(m mat.Matrix, rows, col int) *mat.VecDense {
	v := mat.NewVecDense(rows, nil)
	for i := 0; i < rows; i++ {
		v.SetVec(i, m.At(i, col))
	}
	return v
}

// NodeTrack is the per-body-node JSON shape emitted for a rollout: world
// frame translation and XYZ Euler rotation over the window, re-evaluated
// through the simulator's forward kinematics rather than trusted from any
// cached pose data.
type NodeTrack struct {
	PosX []float64 `json:"pos_x"`
	PosY []float64 `json:"pos_y"`
	PosZ []float64 `json:"pos_z"`
	RotX []float64 `json:"rot_x"`
	RotY []float64 `json:"rot_y"`
	RotZ []float64 `json:"rot_z"`
}

// EmitJSON re-runs the rollout's identity-mapping positions through sim's
// forward kinematics and marshals one NodeTrack per named body node. The
// simulator's state is snapshotted and restored around the whole operation,
// including on a panic.
func EmitJSON(r Rollout, sim world.Simulator, identity world.Mapping) ([]byte, error) {
	snap := sim.Snapshot()
	defer snap.Restore(sim)

	t := r.Len()
	names := sim.NodeNames()
	tracks := make(map[string]*NodeTrack, len(names))
	for _, n := range names {
		tracks[n] = &NodeTrack{
			PosX: make([]float64, t), PosY: make([]float64, t), PosZ: make([]float64, t),
			RotX: make([]float64, t), RotY: make([]float64, t), RotZ: make([]float64, t),
		}
	}

	poses := r.Poses(identity.Name())
	rows, _ := poses.Dims()
	for col := 0; col < t; col++ {
		colVec := columnVec(poses, rows, col)
		identity.WritePositions(sim, colVec)

		for _, n := range names {
			translation, rotation := sim.NodeFrame(n)
			track := tracks[n]
			track.PosX[col], track.PosY[col], track.PosZ[col] = translation[0], translation[1], translation[2]
			track.RotX[col], track.RotY[col], track.RotZ[col] = rotation[0], rotation[1], rotation[2]
		}
	}

	return json.Marshal(tracks)
}
