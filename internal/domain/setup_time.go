package domain

// SetupTimeEntry 表示换台准备时间矩阵中的一项。
// FromType 为空表示该项是某个手术类型当天第一台手术所需的初始准备时间。
type SetupTimeEntry struct {
	FromType *string `json:"fromType"`
	ToType   string  `json:"toType"`
	Minutes  int32   `json:"minutes"`
}

// SetupTimeMatrix 是换台准备时间矩阵，矩阵是非对称的：A→B 的准备时间不必等于 B→A
type SetupTimeMatrix struct {
	Initial map[string]int32            `json:"initial"` // 手术类型 -> 当天第一台的初始准备时间
	Between map[string]map[string]int32 `json:"between"` // 前一台类型 -> 后一台类型 -> 准备时间
}

func NewSetupTimeMatrix() *SetupTimeMatrix {
	return &SetupTimeMatrix{
		Initial: make(map[string]int32),
		Between: make(map[string]map[string]int32),
	}
}

func (m *SetupTimeMatrix) Set(from *string, to string, minutes int32) {
	if from == nil {
		m.Initial[to] = minutes
		return
	}
	if _, exists := m.Between[*from]; !exists {
		m.Between[*from] = make(map[string]int32)
	}
	m.Between[*from][to] = minutes
}

// Entries 将矩阵展开为条目列表，方便存储
func (m *SetupTimeMatrix) Entries() []SetupTimeEntry {
	entries := make([]SetupTimeEntry, 0, len(m.Initial))
	for to, minutes := range m.Initial {
		entries = append(entries, SetupTimeEntry{FromType: nil, ToType: to, Minutes: minutes})
	}
	for from, row := range m.Between {
		for to, minutes := range row {
			f := from
			entries = append(entries, SetupTimeEntry{FromType: &f, ToType: to, Minutes: minutes})
		}
	}
	return entries
}
