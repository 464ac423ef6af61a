package server

// announce tells every registered client, including one that has just
// joined, that name joined or left. Nothing is sent to an empty room.
func (h *Hub) announce(name string, kind EventKind) {
	if h.registry.Len() == 0 {
		return
	}

	payload, err := encodePacket(UserEvent{
		Type:      TypeUserEvent,
		Username:  name,
		Event:     kind,
		Timestamp: h.timestamp(),
	})
	if err != nil {
		h.logger.Error("build user event failed", "username", name, "error", err)
		return
	}

	h.broadcast(payload, NoID)
}
