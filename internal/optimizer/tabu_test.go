package optimizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTabuListExpiryBoundary(t *testing.T) {
	tabu := newTabuList(8)
	sig := moveSignature{kind: moveRelocate, a: 1, b: 2, c: 3}

	// 在第 5 轮登记,禁忌期限 3 轮:第 8 轮仍被禁忌,第 9 轮重新合法
	tabu.add(sig, 5+3)

	assert.True(t, tabu.isTabu(sig, 6))
	assert.True(t, tabu.isTabu(sig, 8))
	assert.False(t, tabu.isTabu(sig, 9))
}

func TestTabuListUnknownSignature(t *testing.T) {
	tabu := newTabuList(8)
	assert.False(t, tabu.isTabu(moveSignature{kind: moveSwap, a: 1, b: 2}, 1))
}

// 容量耗尽时淘汰最老的表项
func TestTabuListRingEviction(t *testing.T) {
	tabu := newTabuList(8)

	for i := int64(0); i < 8; i++ {
		tabu.add(moveSignature{kind: moveSwap, a: i, b: i + 100}, 1000)
	}
	first := moveSignature{kind: moveSwap, a: 0, b: 100}
	assert.True(t, tabu.isTabu(first, 1))

	tabu.add(moveSignature{kind: moveSwap, a: 8, b: 108}, 1000)
	assert.False(t, tabu.isTabu(first, 1))
	assert.True(t, tabu.isTabu(moveSignature{kind: moveSwap, a: 8, b: 108}, 1))
}

// 被禁忌的移动只要超过历史最好解就被特赦,不会被过滤掉
func TestAspirationOverridesTabu(t *testing.T) {
	tabu := newTabuList(8)
	sig := moveSignature{kind: moveSwap, a: 1, b: 2}
	tabu.add(sig, 10)

	bestScore := 3.5
	better := &candidate{sig: sig, score: bestScore + 0.1}
	worse := &candidate{sig: sig, score: bestScore - 0.1}
	equal := &candidate{sig: sig, score: bestScore}
	free := &candidate{sig: moveSignature{kind: moveSwap, a: 3, b: 4}, score: bestScore - 1}

	assert.True(t, admissible(tabu, better, 5, bestScore), "超过最好解的禁忌移动应被特赦")
	assert.False(t, admissible(tabu, worse, 5, bestScore))
	assert.False(t, admissible(tabu, equal, 5, bestScore), "持平不触发特赦")
	assert.True(t, admissible(tabu, free, 5, bestScore), "未被禁忌的移动不受影响")

	// 禁忌期满后不再需要特赦
	assert.True(t, admissible(tabu, worse, 11, bestScore))
}

// 同一签名被重新登记后,旧表项的淘汰不应误删新表项
func TestTabuListReAddSameSignature(t *testing.T) {
	tabu := newTabuList(8)
	sig := moveSignature{kind: moveReorder, a: 1, b: 2}

	tabu.add(sig, 10)
	tabu.add(sig, 20)

	// 填满剩余槽位,让最早的那份 sig 表项被淘汰
	for i := int64(0); i < 6; i++ {
		tabu.add(moveSignature{kind: moveSwap, a: i, b: i + 100}, 1000)
	}
	tabu.add(moveSignature{kind: moveSwap, a: 6, b: 106}, 1000)

	assert.True(t, tabu.isTabu(sig, 15), "重新登记的表项不应被旧表项的淘汰连带删除")
}
