package calib

// PreMixColumnCounts — таблица калибровочных исключений.
//
// При таком числе колонок перед забором бусин из резервуара выполняется
// дополнительное перемешивание суспензии (30 × 15 мкл, 3/6 мм, 9 мкл/с).
// Значения подобраны эмпирически при отладке протокола; почему именно
// 1 и 6 колонок, не установлено. Это не общее правило для других
// количеств колонок.
var PreMixColumnCounts = map[int]bool{
	1: true,
	6: true,
}

// NeedsPreMix сообщает, требуется ли перемешивание бусин перед забором.
func NeedsPreMix(columns int) bool {
	return PreMixColumnCounts[columns]
}
