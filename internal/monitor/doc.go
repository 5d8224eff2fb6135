// Package monitor приостанавливает протокол, пока открыта дверь робота.
//
// Монитор работает в отдельной горутине и раз в Interval опрашивает
// датчик двери: дверь открылась — Pause, закрылась — Resume.
// С секвенсором монитор связан только жизненным циклом: Start перед
// первой фазой, Stop (с ожиданием горутины) в финализации.
package monitor
