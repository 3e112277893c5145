package session

// Subscribe возвращает канал снимков и функцию отписки.
//
// Канал буферизован на один элемент и хранит только последний снимок:
// медленный подписчик пропускает промежуточные состояния, но никогда не
// блокирует менеджер. Текущий снимок отправляется сразу.
func (m *Manager) Subscribe() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, 1)

	m.subsMu.Lock()
	id := m.nextSub
	m.nextSub++
	m.subs[id] = ch
	ch <- m.Snapshot()
	m.subsMu.Unlock()

	var once bool
	return ch, func() {
		m.subsMu.Lock()
		defer m.subsMu.Unlock()

		if once {
			return
		}
		once = true
		delete(m.subs, id)
		close(ch)
	}
}

// publish рассылает текущий снимок. Снимок берётся под subsMu, поэтому
// последняя рассылка всегда отражает актуальное состояние.
func (m *Manager) publish() {
	m.subsMu.Lock()
	defer m.subsMu.Unlock()

	snap := m.Snapshot()

	for _, ch := range m.subs {
		// Последний снимок важнее: вытесняем устаревший.
		select {
		case <-ch:
		default:
		}
		ch <- snap
	}
}
