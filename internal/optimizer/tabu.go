package optimizer

// moveSignature 是归一化后的移动签名：
// relocate 记录 (手术ID, 原手术室ID, 目标手术室ID)，
// swap 和 reorder 记录排序后的手术ID对
type moveSignature struct {
	kind moveKind
	a    int64
	b    int64
	c    int64
}

// tabuList 是禁忌表，用固定容量的环形缓冲配合 map 实现：
// map 负责快速查询，环形缓冲负责在容量耗尽时淘汰最老的表项
type tabuList struct {
	m   map[moveSignature]int // 签名 → 禁忌到期的迭代序号
	key []moveSignature
	exp []int
	occ []bool
	i   int
}

func newTabuList(capacity int) *tabuList {
	if capacity < 8 {
		capacity = 8
	}
	return &tabuList{
		m:   make(map[moveSignature]int, capacity*2),
		key: make([]moveSignature, capacity),
		exp: make([]int, capacity),
		occ: make([]bool, capacity),
	}
}

// isTabu 判断某个移动在当前迭代是否被禁忌。
// 表项在 iter > 到期序号之后自动失效，即到期后的下一轮迭代重新变为合法
func (t *tabuList) isTabu(sig moveSignature, iter int) bool {
	exp, exists := t.m[sig]
	return exists && iter <= exp
}

// add 登记一个禁忌移动及其到期迭代序号
func (t *tabuList) add(sig moveSignature, expiry int) {
	if t.occ[t.i] {
		old := t.key[t.i]
		if curExp, exists := t.m[old]; exists && curExp == t.exp[t.i] {
			delete(t.m, old)
		}
	}

	t.key[t.i] = sig
	t.exp[t.i] = expiry
	t.occ[t.i] = true
	t.m[sig] = expiry

	t.i++
	if t.i >= len(t.key) {
		t.i = 0
	}
}
