// Package phases содержит фазы протокола магнитной очистки ДНК.
//
// Каждая фаза реализует интерфейс Phase и работает с оборудованием
// через Env. Фазы выполняются строго по порядку, один раз, без возвратов:
//
//	setup → bead_binding → magnetic_capture → supernatant_removal →
//	wash → elution → release_transfer → finalization
//
// Setup загружает деку по DeckLayout и заполняет Env.Deck,
// остальные фазы используют уже загруженное оборудование.
//
// Пример:
//
//	env := &phases.Env{Robot: proto, Params: params, Profile: calib.Biorad200()}
//	for _, ph := range phases.Sequence() {
//	    if err := ph.Execute(ctx, env); err != nil {
//	        return err
//	    }
//	}
package phases
