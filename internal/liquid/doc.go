// Package liquid содержит примитивы работы с жидкостью поверх драйвера робота.
//
// Примитивы не хранят состояния и работают только через robot.Pipette:
//   - Mix — многократный набор/слив в одной лунке на заданных высотах
//   - StepwiseDispense — дозирование частями, следуя за уровнем жидкости
package liquid
