package trajectory

import "gonum.org/v1/gonum/mat"

// NumberNonZeroJacobian is the total nonzero count across every parent
// constraint row (dense, flatDim entries each) and every knot pair's block
// (a dense flatDim_i x stateDim band plus a stateDim-wide diagonal).
func (m *MultiShot) NumberNonZeroJacobian() int {
	rows, _ := m.JacobianSparsityStructure()
	return len(rows)
}

// JacobianSparsityStructure returns the (row, col) index pairs of every
// structurally nonzero Jacobian entry, computed once from the problem's
// fixed shape and reused by every GetSparseJacobian call — the pattern
// itself never changes between solver iterations, only the values do.
func (m *MultiShot) JacobianSparsityStructure() (rows, cols []int) {
	if m.sparsityRows != nil {
		return m.sparsityRows, m.sparsityCols
	}

	offsets := m.computeOffsets()
	flatDim := m.FlatDim()

	for ci := range m.constraints {
		for col := 0; col < flatDim; col++ {
			rows = append(rows, ci)
			cols = append(cols, col)
		}
	}

	stateDim := m.stateDim()
	rowBase := len(m.constraints)
	for i := 0; i < len(m.shots)-1; i++ {
		shotFlatDim := m.shots[i].FlatDim()
		for r := 0; r < stateDim; r++ {
			for c := 0; c < shotFlatDim; c++ {
				rows = append(rows, rowBase+r)
				cols = append(cols, offsets[i]+c)
			}
		}
		for d := 0; d < stateDim; d++ {
			rows = append(rows, rowBase+d)
			cols = append(cols, offsets[i+1]+d)
		}
		rowBase += stateDim
	}

	m.sparsityRows, m.sparsityCols = rows, cols
	return rows, cols
}

// GetSparseJacobian recomputes the dense Jacobian at x and reads off one
// value per (row, col) pair JacobianSparsityStructure emits, in that exact
// order, so scattering values back into the declared pattern reconstructs
// the dense Jacobian exactly.
func (m *MultiShot) GetSparseJacobian(x *mat.VecDense) ([]float64, error) {
	dense, err := m.BackpropJacobian(x)
	if err != nil {
		return nil, err
	}
	rows, cols := m.JacobianSparsityStructure()
	values := make([]float64, len(rows))
	for i := range rows {
		values[i] = dense.At(rows[i], cols[i])
	}
	return values, nil
}
