// Package formats reads and writes the Ragnarok Online model (RSM), world
// (RSW) and ground (GND) files. Names are stored as EUC-KR and decoded to
// UTF-8.
package formats
