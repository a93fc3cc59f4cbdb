package board

// MoveList is a small ordered set of columns. It is a value type so the
// search can build one per node without allocating.
type MoveList struct {
	cols   [Width]int8
	scores [Width]int8
	n      int
}

func (ml *MoveList) add(col int) {
	ml.cols[ml.n] = int8(col)
	ml.n++
}

// insert keeps the list sorted by descending score. Equal scores keep their
// insertion order.
func (ml *MoveList) insert(col, score int) {
	i := ml.n
	ml.n++
	for ; i > 0 && int(ml.scores[i-1]) < score; i-- {
		ml.cols[i] = ml.cols[i-1]
		ml.scores[i] = ml.scores[i-1]
	}
	ml.cols[i] = int8(col)
	ml.scores[i] = int8(score)
}

func (ml MoveList) Len() int {
	return ml.n
}

func (ml MoveList) At(i int) int {
	return int(ml.cols[i])
}

func (ml MoveList) Contains(col int) bool {
	for i := 0; i < ml.n; i++ {
		if int(ml.cols[i]) == col {
			return true
		}
	}
	return false
}

// Columns copies the list into a slice.
func (ml MoveList) Columns() []int {
	cols := make([]int, ml.n)
	for i := range cols {
		cols[i] = int(ml.cols[i])
	}
	return cols
}
