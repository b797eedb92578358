package auth

import (
	"github.com/linemk/digital-market/internal/domain/models"
)

// Пакет auth содержит чистые предикаты авторизации.
// Никакого состояния и I/O: каждый предикат принимает актора и целевой
// ресурс и возвращает bool. Все проверки доступа в приложении проходят
// через эти функции, а не размазаны по обработчикам.

// CanViewOrder — просмотр заказа разрешён админу или покупателю-владельцу
func CanViewOrder(user *models.User, order *models.Order) bool {
	return user.Role == models.RoleAdmin || user.ID == order.BuyerID
}

// CanDownload — скачивание разрешено админу, либо покупателю-владельцу
// при условии, что заказ оплачен (completed)
func CanDownload(user *models.User, order *models.Order) bool {
	return user.Role == models.RoleAdmin ||
		(user.ID == order.BuyerID && order.Status == models.OrderStatusCompleted)
}

// CanCreateProduct — создавать товары могут продавцы и админы
func CanCreateProduct(user *models.User) bool {
	return user.Role == models.RoleSeller || user.Role == models.RoleAdmin
}

// CanUpdateProduct — обновлять товар может админ или продавец-владелец
func CanUpdateProduct(user *models.User, product *models.Product) bool {
	return user.Role == models.RoleAdmin || user.ID == product.SellerID
}

// CanDeleteProduct — удалять товар может админ или продавец-владелец
func CanDeleteProduct(user *models.User, product *models.Product) bool {
	return user.Role == models.RoleAdmin || user.ID == product.SellerID
}

// CanViewProduct — активный товар виден всем, скрытый — только админу и владельцу
func CanViewProduct(user *models.User, product *models.Product) bool {
	return product.IsActive || user.Role == models.RoleAdmin || user.ID == product.SellerID
}
