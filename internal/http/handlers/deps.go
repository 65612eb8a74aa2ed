package handlers

import (
	"github.com/jmoiron/sqlx"

	"duka/internal/config"
	"duka/internal/notify"
	"duka/internal/repos"
	"duka/internal/services"
)

type Deps struct {
	AuthHandler     *AuthHandler
	CategoryHandler *CategoryHandler
	ProductHandler  *ProductHandler
	OrderHandler    *OrderHandler

	Auth *services.AuthService
}

func NewDeps(db *sqlx.DB, cfg config.Config) *Deps {
	catRepo := repos.NewCategoryRepo(db)
	prodRepo := repos.NewProductRepo(db)
	orderRepo := repos.NewOrderRepo(db)
	custRepo := repos.NewCustomerRepo(db)

	treeSvc := services.NewCategoryService(catRepo)
	catalogSvc := services.NewCatalogService(prodRepo, treeSvc)
	authSvc := services.NewAuthService(custRepo)

	dispatcher := &notify.Dispatcher{
		Orders:     orderRepo,
		Customers:  custRepo,
		SMS:        &notify.LogSMSSender{SenderID: cfg.SMSSender},
		Email:      &notify.LogEmailSender{From: "noreply@duka.test"},
		AdminEmail: cfg.AdminEmail,
	}
	orderSvc := services.NewOrderService(orderRepo, prodRepo, dispatcher, cfg.TaxRate)

	return &Deps{
		AuthHandler:     &AuthHandler{Auth: authSvc},
		CategoryHandler: &CategoryHandler{Tree: treeSvc},
		ProductHandler:  &ProductHandler{Catalog: catalogSvc},
		OrderHandler:    &OrderHandler{Orders: orderSvc},
		Auth:            authSvc,
	}
}
