// Package calib содержит калибровочные модели планшетов.
//
// Основная модель — обратная функция квадратичной зависимости
// объём → высота жидкости в лунке:
//
//	H(V) = (-a + sqrt(a² + b + c·V)) + margin
//
// Коэффициенты подобраны эмпирически для конкретного типа планшета
// и хранятся в Profile. Для планшета biorad_96_wellplate_200ul_pcr
// a = 2.5, b = 4.9, c = 1.42, margin = 1 мм.
//
// Профили регистрируются в Registry и могут загружаться из YAML:
//
//	profiles:
//	  - name: biorad_96_wellplate_200ul_pcr
//	    a: 2.5
//	    b: 4.9
//	    c: 1.42
//	    margin: 1
//
// Здесь же находится таблица калибровочных исключений протокола
// (PreMixColumnCounts).
package calib
