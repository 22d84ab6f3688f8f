// Package services implements the driving port interfaces.
// Services contain the harvest orchestration logic: the process
// lifecycle, the fan-out harvest loop, listener notification and the
// connector and processor registries. They call driven ports (brokers,
// the process store) and never a concrete adapter.
package services
