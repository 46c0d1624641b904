package sheet

// SortFunc handles a sort event. ctx is the host context passed to the
// triggering call.
type SortFunc[C any] func(ctx C, column string, order Order)

// IndexFunc handles a submit or select event at (row, column).
type IndexFunc[C any] func(ctx C, row, column int)

// callbacks holds at most one handler per event kind. A nil handler drops the
// event.
type callbacks[C any] struct {
	onSort   SortFunc[C]
	onSubmit IndexFunc[C]
	onSelect IndexFunc[C]
}

func (cb *callbacks[C]) sort(ctx C, column string, order Order) {
	if cb.onSort != nil {
		cb.onSort(ctx, column, order)
	}
}

func (cb *callbacks[C]) submit(ctx C, row, column int) {
	if cb.onSubmit != nil {
		cb.onSubmit(ctx, row, column)
	}
}

func (cb *callbacks[C]) selected(ctx C, row, column int) {
	if cb.onSelect != nil {
		cb.onSelect(ctx, row, column)
	}
}
