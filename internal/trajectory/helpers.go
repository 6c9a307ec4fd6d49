package trajectory

import "gonum.org/v1/gonum/mat"

func columnOf(m *mat.Dense, t, dim int) *mat.VecDense {
	out := mat.NewVecDense(dim, nil)
	for i := 0; i < dim; i++ {
		out.SetVec(i, m.At(i, t))
	}
	return out
}

func setColumn(m *mat.Dense, t int, v *mat.VecDense) {
	rows, _ := m.Dims()
	for i := 0; i < rows; i++ {
		m.Set(i, t, v.AtVec(i))
	}
}

// copyColumns copies every column of src into dst starting at dst column
// destStart, used to splice one shot's rollout into the combined buffer.
func copyColumns(dst *mat.Dense, src mat.Matrix, destStart, count int) {
	rows, _ := dst.Dims()
	for j := 0; j < count; j++ {
		for i := 0; i < rows; i++ {
			dst.Set(i, destStart+j, src.At(i, j))
		}
	}
}
