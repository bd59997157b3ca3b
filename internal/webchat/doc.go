// Package webchat serves a local browser chat page backed by the Direct Line
// client. It exposes a small JSON API for starting conversations, sending
// messages and polling activities, with one reconciler session per browser
// conversation.
package webchat
