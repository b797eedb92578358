package models

import "github.com/shopspring/decimal"

// Product представляет цифровой товар, выставленный продавцом
type Product struct {
	ID            int64
	SellerID      int64           // Владелец товара (продавец)
	Name          string
	Price         decimal.Decimal // Цена с точностью 2 знака, никогда не float
	IsActive      bool
	DownloadLimit int             // Допустимое число скачиваний на одну покупку
}
