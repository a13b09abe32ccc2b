package optimizer

// Reason 是约束检查给出的不可行原因
type Reason string

const (
	ReasonOK               Reason = ""
	ReasonRoomWindow       Reason = "手术室时间窗无法容纳"
	ReasonPatientWait      Reason = "超出患者最长等待时间"
	ReasonSurgeonWindow    Reason = "主刀医生不在可用时间内"
	ReasonSurgeonConflict  Reason = "主刀医生时间冲突"
	ReasonEquipmentMissing Reason = "缺少所需设备"
	ReasonEquipmentBusy    Reason = "可移动设备数量不足"
)

func (r Reason) Feasible() bool {
	return r == ReasonOK
}

func overlap(aStart, aEnd, bStart, bEnd int) bool {
	return aStart < bEnd && bStart < aEnd
}

func inWindows(windows []window, start, end int) bool {
	for _, w := range windows {
		if start >= w.start && end <= w.end {
			return true
		}
	}
	return false
}

// placementOf 返回某台手术的落位，受影响手术室重新推导出的落位从 override 中优先读取
func placementOf(sol *solution, override map[int]placement, si int) placement {
	if p, exists := override[si]; exists {
		return p
	}
	return sol.placed[si]
}

// checkPlacement 检查一台手术的拟定落位在当前方案下是否可行，按从廉价到昂贵的顺序：
// 手术室时间窗 → 医生可用时间 → 医生冲突 → 设备能力 → 可移动设备冲突。
// 手术室内部的重叠和换台间隔由顺序推导保证，不在这里重复检查
func (ins *instance) checkPlacement(sol *solution, override map[int]placement, si, room, start, end int) Reason {
	su := &ins.surgeries[si]

	if !inWindows(ins.rooms[room].windows, start, end) {
		return ReasonRoomWindow
	}
	if su.maxWait > 0 && start-su.earliest > su.maxWait {
		return ReasonPatientWait
	}

	surgeon := &ins.surgeons[su.surgeon]
	if !inWindows(surgeon.windows, start, end) {
		return ReasonSurgeonWindow
	}
	for _, other := range ins.surgeonSurgeries[su.surgeon] {
		if other == si {
			continue
		}
		p := placementOf(sol, override, other)
		if p.room < 0 {
			continue
		}
		if overlap(start, end, p.start, p.end) {
			return ReasonSurgeonConflict
		}
	}

	return ins.checkEquipment(sol, override, si, room, start, end)
}

// checkEquipment 检查设备约束。手术室自带的设备随房间独占，不会冲突；
// 可移动设备按类型互换，只要任一时刻的并发需求不超过设备数量就一定存在可行的分配
func (ins *instance) checkEquipment(sol *solution, override map[int]placement, si, room, start, end int) Reason {
	su := &ins.surgeries[si]

	for _, typ := range su.equipment {
		if ins.rooms[room].equipment[typ] {
			continue
		}

		units := ins.mobileUnits[typ]
		if units == 0 {
			return ReasonEquipmentMissing
		}

		// 收集同样占用该类型可移动设备且时间重叠的其他手术
		var conflicts []placement
		for _, other := range ins.demandByEquip[typ] {
			if other == si {
				continue
			}
			p := placementOf(sol, override, other)
			if p.room < 0 || ins.rooms[p.room].equipment[typ] {
				continue
			}
			if overlap(start, end, p.start, p.end) {
				conflicts = append(conflicts, p)
			}
		}
		if len(conflicts)+1 <= units {
			continue
		}

		// 冲突数超过设备数时还需要看它们是否真的同时发生
		maxConcurrent := 0
		points := make([]int, 0, len(conflicts)+1)
		points = append(points, start)
		for _, p := range conflicts {
			if p.start > start {
				points = append(points, p.start)
			}
		}
		for _, point := range points {
			concurrent := 0
			for _, p := range conflicts {
				if p.start <= point && point < p.end {
					concurrent++
				}
			}
			if concurrent > maxConcurrent {
				maxConcurrent = concurrent
			}
		}
		if maxConcurrent+1 > units {
			return ReasonEquipmentBusy
		}
	}

	return ReasonOK
}
