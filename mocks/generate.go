package mocks

//go:generate mockgen -destination=./mock_pricestore.go -package=mocks github.com/tierlab/splitbuy/internal/datasource PriceStore
