package domain

// Column identifies one (board, status) ordering scope. Positions are only
// ever compared within a single column.
type Column struct {
	Board  string
	Status Status
}

// Shift adjusts by Delta the position of every task in Column whose current
// position lies in [From, To], excluding ExcludeID. To < 0 means open-ended.
type Shift struct {
	Column    Column
	From      int
	To        int
	Delta     int
	ExcludeID string
}

// Contains reports whether a task at pos falls inside the shift window.
func (s Shift) Contains(pos int) bool {
	return pos >= s.From && (s.To < 0 || pos <= s.To)
}

// Placement pins the moved task's final status and position.
type Placement struct {
	TaskID   string
	Status   Status
	Position int
}

// Plan is the complete set of position updates required to keep every touched
// column densely ordered after one mutation. The shifts are independent of one
// another, but the plan as a whole must be applied atomically with respect to
// other writers of the same columns.
type Plan struct {
	Shifts []Shift
	Place  *Placement
}

// Empty reports whether applying the plan would change nothing.
func (p Plan) Empty() bool {
	return len(p.Shifts) == 0 && p.Place == nil
}

// AppendPosition returns the position for a task entering a column of the
// given live count without displacing anyone.
func AppendPosition(count int) int {
	if count < 0 {
		return 0
	}
	return count
}

// ClampPosition bounds a requested target position to the column. For a task
// already in the column the last usable slot is count-1; a task entering from
// another column may take the append slot at count. Out-of-range requests are
// treated as append-to-end rather than rejected.
func ClampPosition(requested, count int, sameColumn bool) int {
	max := count
	if sameColumn {
		max = count - 1
	}
	if max < 0 {
		max = 0
	}
	if requested > max {
		return max
	}
	if requested < 0 {
		return 0
	}
	return requested
}

// PlanMove computes the reordering for moving t to (target, requested).
// destCount is the current live count of the destination column, including t
// itself when the move stays in t's column. A same-column move to the current
// position yields an empty plan.
func PlanMove(t Task, target Status, requested, destCount int) Plan {
	if target == t.Status {
		pos := ClampPosition(requested, destCount, true)
		if pos == t.Position {
			return Plan{}
		}
		var shift Shift
		if pos < t.Position {
			// Moving earlier: everyone in [pos, old) steps right.
			shift = Shift{
				Column:    Column{Board: t.Board, Status: t.Status},
				From:      pos,
				To:        t.Position - 1,
				Delta:     1,
				ExcludeID: t.ID,
			}
		} else {
			// Moving later: everyone in (old, pos] steps left.
			shift = Shift{
				Column:    Column{Board: t.Board, Status: t.Status},
				From:      t.Position + 1,
				To:        pos,
				Delta:     -1,
				ExcludeID: t.ID,
			}
		}
		return Plan{
			Shifts: []Shift{shift},
			Place:  &Placement{TaskID: t.ID, Status: target, Position: pos},
		}
	}

	pos := ClampPosition(requested, destCount, false)
	return Plan{
		Shifts: []Shift{
			// Close the gap t leaves behind.
			{
				Column:    Column{Board: t.Board, Status: t.Status},
				From:      t.Position + 1,
				To:        -1,
				Delta:     -1,
				ExcludeID: t.ID,
			},
			// Open a slot in the destination.
			{
				Column:    Column{Board: t.Board, Status: target},
				From:      pos,
				To:        -1,
				Delta:     1,
				ExcludeID: t.ID,
			},
		},
		Place: &Placement{TaskID: t.ID, Status: target, Position: pos},
	}
}

// PlanRemoval computes the gap-closing shift for deleting t. The same shift
// is the "from" half of a cross-column move.
func PlanRemoval(t Task) Plan {
	return Plan{
		Shifts: []Shift{
			{
				Column:    Column{Board: t.Board, Status: t.Status},
				From:      t.Position + 1,
				To:        -1,
				Delta:     -1,
				ExcludeID: t.ID,
			},
		},
	}
}
