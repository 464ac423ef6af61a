package server

import "errors"

// broadcast delivers payload to every registered client except exclude.
// Recipients whose connection turns out to be closed are collected during
// the pass and evicted once it completes; other delivery failures only
// affect that recipient.
func (h *Hub) broadcast(payload []byte, exclude ID) {
	members := h.registry.Snapshot()
	var evicted []ID

	for _, m := range members {
		if exclude != NoID && m.ID == exclude {
			continue
		}
		err := m.Conn.Send(payload)
		if err == nil {
			continue
		}
		if errors.Is(err, ErrConnectionClosed) {
			evicted = append(evicted, m.ID)
			continue
		}
		h.logger.Warn("delivery failed", "client_id", m.ID.String(), "error", err)
	}

	h.logger.Debug("broadcast", "recipients", len(members), "evicted", len(evicted))

	for _, id := range evicted {
		h.drop(id, "evicted")
	}
}
