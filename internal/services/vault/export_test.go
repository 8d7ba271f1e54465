package vault

// Buffer exposes the owned passphrase buffer so tests can check zeroization.
func (h *Handle) Buffer() []byte {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.passphrase
}
