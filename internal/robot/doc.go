// Package robot описывает контракт драйвера робота-дозатора.
//
// Драйвер — внешний компонент: загрузка модулей и лабораторной посуды,
// пипетки, магнитный модуль, задержки, датчик двери, пауза/возобновление.
// Протокол очистки работает только через эти интерфейсы и не знает,
// управляет ли он реальным роботом или симулятором.
//
// Адресация:
//
//	plate.Well("A1").Bottom(3)            // 3 мм над дном лунки
//	plate.Well("A1").Bottom(0.3).Move(Point{X: 0.3, Y: 0.3, Z: 0.1})
//	plate.Well("A1").AtClearance()        // высота по умолчанию пипетки
//
// Драйверы регистрируются в Registry по имени. Симулятор (пакет robot/sim)
// регистрирует себя как "sim".
package robot
