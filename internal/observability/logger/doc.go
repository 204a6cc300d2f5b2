// Package logger provee el logger zap del proceso con scoping por contexto.
//
// # Decisiones
//
//   - Singleton: una sola instancia inicializada con Init() desde cmd/rolegate.
//   - Scoping: cada comando entrante (begin, complete, redeem...) lleva su logger
//     con request_id y requester, inyectado con ToContext.
//   - Entornos: "dev" usa consola con colores, "prod" usa JSON.
//
// # Uso
//
//	logger.Init(logger.Config{Env: cfg.App.Env, Level: cfg.Log.Level})
//	defer logger.Sync()
//
//	log := logger.From(ctx).With(logger.Op("Begin"), logger.Requester(req))
//	log.Info("verification code issued", logger.InstitutionalID(id))
package logger
