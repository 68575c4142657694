
package database

import (
    "fmt"
    "os"

    "gorm.io/driver/postgres"
    "gorm.io/gorm"
    "github.com/autohelp/autohelp-backend/internal/models"
)

func InitDB() (*gorm.DB, error) {
    dsn := fmt.Sprintf(
        "host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
        os.Getenv("DB_HOST"),
        os.Getenv("DB_USER"),
        os.Getenv("DB_PASSWORD"),
        os.Getenv("DB_NAME"),
        os.Getenv("DB_PORT"),
    )

    // TranslateError turns pq unique violations into gorm.ErrDuplicatedKey,
    // which the stores map to conflict errors.
    db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
    if err != nil {
        return nil, err
    }

    // Auto migrate the schema
    err = db.AutoMigrate(
        &models.User{},
        &models.Vehicle{},
        &models.ServiceCategory{},
        &models.Request{},
        &models.RequestPhoto{},
        &models.Offer{},
        &models.Review{},
        &models.Station{},
    )
    if err != nil {
        return nil, err
    }

    return db, nil
}
