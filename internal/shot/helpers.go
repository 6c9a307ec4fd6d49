package shot

import (
	"go.uber.org/zap"

	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/trajopt/internal/world"
)

func copyInto(out *mat.VecDense, offset int, v *mat.VecDense) int {
	for i := 0; i < v.Len(); i++ {
		out.SetVec(offset+i, v.AtVec(i))
	}
	return offset + v.Len()
}

func writeInto(out *mat.VecDense, offset int, v *mat.VecDense) {
	for i := 0; i < v.Len(); i++ {
		out.SetVec(offset+i, v.AtVec(i))
	}
}

func sliceFrom(in *mat.VecDense, offset, length int) (*mat.VecDense, int) {
	out := mat.NewVecDense(length, nil)
	for i := 0; i < length; i++ {
		out.SetVec(i, in.AtVec(offset+i))
	}
	return out, offset + length
}

func colOf(m *mat.Dense, t, dim int) *mat.VecDense {
	out := mat.NewVecDense(dim, nil)
	for i := 0; i < dim; i++ {
		out.SetVec(i, m.At(i, t))
	}
	return out
}

func colFromMatrix(m mat.Matrix, t, dim int) *mat.VecDense {
	out := mat.NewVecDense(dim, nil)
	for i := 0; i < dim; i++ {
		out.SetVec(i, m.At(i, t))
	}
	return out
}

func setCol(m *mat.Dense, t int, v *mat.VecDense) {
	rows, _ := m.Dims()
	for i := 0; i < rows; i++ {
		m.Set(i, t, v.AtVec(i))
	}
}

// identity2n returns the 2n x 2n identity, the seed value for the suffix
// transition-matrix product FinalStateJacobian accumulates.
func identity2n(n int) *mat.Dense {
	out := mat.NewDense(2*n, 2*n, nil)
	for i := 0; i < 2*n; i++ {
		out.Set(i, i, 1)
	}
	return out
}

// stackA assembles one step's combined (pos, vel) state transition matrix
// [[PosPos, PosVel], [VelPos, VelVel]] from its BackpropSnapshot.
func stackA(bp *world.BackpropSnapshot, n int) *mat.Dense {
	out := mat.NewDense(2*n, 2*n, nil)
	setBlock(out, 0, 0, bp.PosPos)
	setBlock(out, 0, n, bp.PosVel)
	setBlock(out, n, 0, bp.VelPos)
	setBlock(out, n, n, bp.VelVel)
	return out
}

// stackB assembles one step's combined force-input matrix
// [[PosForce], [VelForce]] from its BackpropSnapshot.
func stackB(bp *world.BackpropSnapshot, n int) *mat.Dense {
	out := mat.NewDense(2*n, n, nil)
	setBlock(out, 0, 0, bp.PosForce)
	setBlock(out, n, 0, bp.VelForce)
	return out
}

func setBlock(dst *mat.Dense, rowOff, colOff int, src mat.Matrix) {
	rows, cols := src.Dims()
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			dst.Set(rowOff+i, colOff+j, src.At(i, j))
		}
	}
}

// projectState left- and right-projects a native 2n x 2n state Jacobian into
// representation space via blockdiag(sPos, sVel), using the fact that a
// bijective representation's projection matrices are orthogonal (inverse
// equals transpose).
func projectState(suffix, sPos, sVel *mat.Dense, n int) *mat.Dense {
	proj := blockDiag(sPos, sVel, n)
	tmp := mat.NewDense(2*n, 2*n, nil)
	tmp.Mul(proj, suffix)
	out := mat.NewDense(2*n, 2*n, nil)
	out.Mul(tmp, proj.T())
	return out
}

// projectRows left-projects a native (2n x cols) Jacobian block into
// representation space via blockdiag(sPos, sVel).
func projectRows(m, sPos, sVel *mat.Dense, n int) *mat.Dense {
	proj := blockDiag(sPos, sVel, n)
	_, cols := m.Dims()
	out := mat.NewDense(proj.RawMatrix().Rows, cols, nil)
	out.Mul(proj, m)
	return out
}

func blockDiag(a, b *mat.Dense, n int) *mat.Dense {
	ar, _ := a.Dims()
	br, _ := b.Dims()
	out := mat.NewDense(ar+br, 2*n, nil)
	setBlock(out, 0, 0, a)
	setBlock(out, ar, n, b)
	return out
}

// matVec returns m^T*v when transpose is true, m*v otherwise.
func matVec(m *mat.Dense, v *mat.VecDense, transpose bool) *mat.VecDense {
	rows, cols := m.Dims()
	out := mat.NewVecDense(cols, nil)
	if transpose {
		out = mat.NewVecDense(cols, nil)
		out.MulVec(m.T(), v)
		return out
	}
	out = mat.NewVecDense(rows, nil)
	out.MulVec(m, v)
	return out
}

func errField(err error) zap.Field {
	return zap.Error(err)
}
