package core

import "strings"

// ChannelPrefix namespaces room broadcast channels on the bus.
const ChannelPrefix = "eph:room"

// RoomChannel returns the bus channel for a room.
func RoomChannel(roomID string) string {
	return ChannelPrefix + ":" + roomID
}

// RoomChannelPattern matches every room channel.
func RoomChannelPattern() string {
	return ChannelPrefix + ":*"
}

// RoomFromChannel strips the channel namespace. It reports false for channels
// outside the namespace or with an empty room id.
func RoomFromChannel(channel string) (string, bool) {
	roomID, ok := strings.CutPrefix(channel, ChannelPrefix+":")
	if !ok || roomID == "" {
		return "", false
	}
	return roomID, true
}
