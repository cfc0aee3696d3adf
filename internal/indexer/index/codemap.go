package index

// CodeMap is the bijection between occupation codes and dense document
// indices 0..n-1 used to address the norm vector.
type CodeMap struct {
	byCode map[string]int
	codes  []string
}

// NewCodeMap numbers codes in the given order.
func NewCodeMap(codes []string) *CodeMap {
	m := &CodeMap{
		byCode: make(map[string]int, len(codes)),
		codes:  make([]string, len(codes)),
	}
	copy(m.codes, codes)
	for i, code := range codes {
		m.byCode[code] = i
	}
	return m
}

func (m *CodeMap) IndexOf(code string) (int, bool) {
	i, ok := m.byCode[code]
	return i, ok
}

func (m *CodeMap) CodeAt(i int) (string, bool) {
	if i < 0 || i >= len(m.codes) {
		return "", false
	}
	return m.codes[i], true
}

func (m *CodeMap) Len() int {
	return len(m.codes)
}
