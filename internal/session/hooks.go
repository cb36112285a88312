package session

import (
	"time"

	"github.com/sirupsen/logrus"
)

// RegisterEventLogging logs every connection event of m.
func RegisterEventLogging(m *Manager) {
	m.AddEventCallback(func(event Event, alias string, state State) {
		switch event {
		case EventConnected:
			logrus.WithFields(logrus.Fields{
				"event":     event,
				"alias":     alias,
				"url":       state.URL,
				"transport": state.Transport,
			}).Info("Connection established")
		case EventDisconnected:
			logrus.WithFields(logrus.Fields{
				"event":    event,
				"alias":    alias,
				"calls":    state.Calls,
				"duration": time.Since(state.ConnectedAt).String(),
			}).Info("Connection closed")
		case EventToolCalled:
			if state.Calls%10 == 0 {
				logrus.WithFields(logrus.Fields{
					"event": event,
					"alias": alias,
					"tool":  state.LastTool,
					"calls": state.Calls,
				}).Debug("Tool calls on connection")
			}
		}
	})

	m.AddEventCallback(func(event Event, alias string, state State) {
		if event != EventToolCalled || state.Calls <= 100 {
			return
		}
		rate := float64(state.Calls) / time.Since(state.ConnectedAt).Minutes()
		if rate > 10 {
			logrus.WithFields(logrus.Fields{
				"alias":     alias,
				"call_rate": rate,
				"calls":     state.Calls,
			}).Warn("High frequency call pattern detected")
		}
	})
}
