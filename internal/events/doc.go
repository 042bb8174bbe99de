// Package events streams catalog publish notifications to websocket clients.
//
// Clients connect to the Hub's handler and receive a JSON message such as
//
//	{"type":"published","generation":12,"categories":4,"images":310,"timestamp":"..."}
//
// every time a new snapshot becomes current. Clients can use the generation
// to decide when cached listings are worth refetching.
package events
