package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"notaryorders/internal/config"
	"notaryorders/internal/crm"
	"notaryorders/internal/db"
	"notaryorders/internal/dispatch"
	"notaryorders/internal/httpserver"
	"notaryorders/internal/invoicing"
	"notaryorders/internal/payments"
	"notaryorders/internal/pricing"
	contactrepo "notaryorders/internal/repository/contact"
	couponrepo "notaryorders/internal/repository/coupon"
	dispatchrepo "notaryorders/internal/repository/dispatchclient"
	orderrepo "notaryorders/internal/repository/order"
	mirrorrepo "notaryorders/internal/repository/paymentmirror"
	eventrepo "notaryorders/internal/repository/webhookevent"
	"notaryorders/internal/retryhttp"
	couponsvc "notaryorders/internal/service/coupon"
	"notaryorders/internal/service/fulfillment"
	"notaryorders/internal/service/intake"
)

func main() {
	cfg := config.FromEnv()
	logger := log.New(os.Stdout, "[api] ", log.LstdFlags|log.LUTC|log.Lshortfile)

	ctx := context.Background()
	dbpool, err := db.Connect(ctx, cfg.DBConnString)
	if err != nil {
		logger.Fatalf("connect to db: %v", err)
	}
	defer dbpool.Close()

	retryClient := retryhttp.New(retryhttp.Policy{
		MaxAttempts: cfg.RetryAttempts,
		Delay:       cfg.RetryDelay,
		Timeout:     cfg.CallTimeout,
	}, logger)

	gateway := payments.NewGateway(payments.Config{
		BaseURL:    cfg.GatewayBaseURL,
		SecretKey:  cfg.GatewaySecretKey,
		SuccessURL: cfg.CheckoutSuccessURL,
		CancelURL:  cfg.CheckoutCancelURL,
	}, retryClient, logger)

	crmClient := crm.NewClient(crm.Config{
		BaseURL:     cfg.CRMBaseURL,
		AccessToken: cfg.CRMAccessToken,
		LocationID:  cfg.CRMLocationID,
	}, retryClient, logger)

	invoiceClient := invoicing.NewClient(invoicing.Config{
		BaseURL:     cfg.CRMBaseURL,
		AccessToken: cfg.CRMAccessToken,
		LocationID:  cfg.CRMLocationID,
		UserID:      cfg.CRMUserID,
	}, retryClient, logger)

	dispatchClient := dispatch.NewClient(dispatch.Config{
		BaseURL:  cfg.DispatchBaseURL,
		APIKey:   cfg.DispatchAPIKey,
		ClientID: cfg.DispatchClientID,
	}, retryClient, logger)

	orderRepo := orderrepo.NewPostgres(dbpool)
	eventRepo := eventrepo.NewPostgres(dbpool)
	mirrorRepo := mirrorrepo.NewPostgres(dbpool)
	contactRepo := contactrepo.NewPostgres(dbpool)
	couponRepo := couponrepo.NewPostgres(dbpool)
	dispatchRepo := dispatchrepo.NewPostgres(dbpool, logger)

	engine := pricing.New(pricing.Config{DefaultProtectionPercent: cfg.ProtectionPercent})
	resolver := crm.NewResolver(crmClient, contactRepo, logger)
	coupons := couponsvc.New(gateway, couponRepo, logger)
	captureCtrl := payments.NewController(gateway, logger)
	workOrders := dispatch.NewBuilder(dispatchClient, logger)
	invoiceDocs := &invoicing.Builder{LocationID: cfg.CRMLocationID, LiveMode: true}

	fulfillmentSvc := fulfillment.New(
		fulfillment.Config{EpsilonCents: cfg.EpsilonCents},
		dbpool,
		orderRepo,
		eventRepo,
		mirrorRepo,
		resolver,
		coupons,
		engine,
		invoiceClient,
		invoiceDocs,
		workOrders,
		captureCtrl,
		logger,
	)
	intakeSvc := intake.New(orderRepo, gateway, coupons, engine, logger)

	srv := httpserver.New(cfg.HTTPAddr, logger, dbpool, httpserver.Deps{
		Intake:      intakeSvc,
		Fulfillment: fulfillmentSvc,
		Ops: httpserver.OpsDeps{
			Events:          eventRepo,
			Mirrors:         mirrorRepo,
			Contacts:        contactRepo,
			DispatchClients: dispatchRepo,
		},
	}, cfg.AllowedOrigins)

	serverErr := make(chan error, 1)
	go func() {
		logger.Printf("starting http server on %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	stopCh := make(chan os.Signal, 1)
	signal.Notify(stopCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-stopCh:
		logger.Printf("received signal %s, shutting down", sig)
	case err := <-serverErr:
		logger.Printf("server error: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Printf("graceful shutdown failed: %v", err)
	} else {
		logger.Printf("server stopped")
	}
}
